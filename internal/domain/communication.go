package domain

import "time"

type CommChannel string

const (
	ChannelCall  CommChannel = "call"
	ChannelEmail CommChannel = "email"
	ChannelSMS   CommChannel = "sms"
)

func (c CommChannel) Valid() bool {
	switch c {
	case ChannelCall, ChannelEmail, ChannelSMS:
		return true
	}
	return false
}

type CommDirection string

const (
	DirectionInbound  CommDirection = "inbound"
	DirectionOutbound CommDirection = "outbound"
)

type CommStatus string

const (
	CommPending   CommStatus = "pending"
	CommCompleted CommStatus = "completed"
	CommFailed    CommStatus = "failed"
	CommCancelled CommStatus = "cancelled"
)

// Communication is a logged interaction tied to one case.
type Communication struct {
	ID        string
	CaseID    string
	Channel   CommChannel
	Direction CommDirection
	Status    CommStatus
	Content   string
	CreatedAt time.Time
}
