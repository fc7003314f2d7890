package state

type DialogState int

const (
	Early DialogState = iota
	Confirmed
	Terminated
)

var dialogStates = [...]string{"early", "confirmed", "terminated"}

func (ds DialogState) String() string {
	return dialogStates[ds]
}
