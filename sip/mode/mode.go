package mode

type SessionMode string

const (
	None         SessionMode = "None"
	Subscription SessionMode = "Subscription"
	Referral     SessionMode = "Referral"
	KeepAlive    SessionMode = "KeepAlive"
	AllTypes     SessionMode = "AllTypes"
)
