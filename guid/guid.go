package guid

import (
	"github.com/google/uuid"
)

func newUUID() *uuid.UUID {
	u, _ := uuid.NewV7()
	return &u
}

func NewTag() string {
	uid := newUUID()
	return uid.String()[24:]
}

func NewKey() string {
	uid := newUUID()
	return uid.String()[24:]
}

// locally assigned dialog identity - asymmetric between dialog sides
func NewDialogID() string {
	uid := newUUID()
	return uid.String()
}
