package dto

// Payload is the closed set of job payloads. Each kind has exactly one
// payload type and the kind string is derived from it.
type Payload interface {
	Kind() string
}

const (
	KindPing                     = "ping"
	KindDeactivateUser           = "user.deactivate"
	KindCreateProfileFromRequest = "profile.create_from_request"
	KindApplyTransfer            = "transfer.apply"
	KindPublishDecree            = "decree.publish"
)

type PingPayload struct {
	Message string `json:"message,omitempty"`
}

func (PingPayload) Kind() string { return KindPing }

// DeactivateUserPayload disables an account, typically scheduled on the
// dismissal date.
type DeactivateUserPayload struct {
	UserID string `json:"user_id" validate:"required"`
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

func (DeactivateUserPayload) Kind() string { return KindDeactivateUser }

type CreateProfileFromRequestPayload struct {
	RequestID string `json:"request_id" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
}

func (CreateProfileFromRequestPayload) Kind() string { return KindCreateProfileFromRequest }

type ApplyTransferPayload struct {
	TransferID   string `json:"transfer_id" validate:"required"`
	UserID       string `json:"user_id" validate:"required"`
	DepartmentID string `json:"department_id" validate:"required"`
}

func (ApplyTransferPayload) Kind() string { return KindApplyTransfer }

type PublishDecreePayload struct {
	DecreeID string `json:"decree_id" validate:"required"`
	Number   string `json:"number" validate:"required"`
}

func (PublishDecreePayload) Kind() string { return KindPublishDecree }
