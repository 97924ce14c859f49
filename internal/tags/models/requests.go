package models

// RegisterTagRequest creates a brand-new tag record server-side.
type RegisterTagRequest struct {
	Code          string         `json:"code"`
	Domain        Domain         `json:"domain"`
	DisplayConfig map[string]any `json:"config,omitempty"`
}

// ActivateTagRequest claims a pre-manufactured tag for the current account.
type ActivateTagRequest struct {
	Code          string         `json:"code"`
	Domain        Domain         `json:"domain"`
	Phone         string         `json:"phone,omitempty"`
	DisplayConfig map[string]any `json:"config,omitempty"`
}

// ActivateOTPRequest starts or completes a phone-verified activation.
type ActivateOTPRequest struct {
	Code  string `json:"code"`
	Phone string `json:"phone"`
	OTP   string `json:"otp,omitempty"`
}

// UpdateTagRequest carries intended changes for PUT /tags/{id}. The server
// may answer with OTPRequired instead of applying them, in which case the
// same pending changes must be resubmitted through the OTP verify step.
type UpdateTagRequest struct {
	Domain        Domain         `json:"domain,omitempty"`
	Phone         string         `json:"phone,omitempty"`
	DisplayConfig map[string]any `json:"config,omitempty"`
}

// UpdateResult is what an update attempt produced. Exactly one of the two
// branches is meaningful: OTPRequired=true means nothing was applied yet and
// the caller must run the verify step; otherwise Tag holds the applied state.
type UpdateResult struct {
	OTPRequired bool `json:"otpRequired"`
	Tag         *Tag `json:"tag,omitempty"`
}

// VerifyOTPRequest completes a two-phase update: the verification code plus
// the same pending changes submitted in the first phase.
type VerifyOTPRequest struct {
	OTP     string           `json:"otp"`
	Changes UpdateTagRequest `json:"changes"`
}

// PublicTag is the unauthenticated scan-flow view of a tag. When the owner
// has locked public lookups the server answers 403 with Locked=true and the
// caller receives this payload rather than an error.
type PublicTag struct {
	Code          string         `json:"code"`
	Domain        Domain         `json:"domain"`
	DisplayConfig map[string]any `json:"displayConfig,omitempty"`
	Locked        bool           `json:"locked"`
	Message       string         `json:"message,omitempty"`
}
