package notification

// Template names understood by the dispatcher.
const (
	TemplateUnregistered    = "unregistered-email"
	TemplateAlreadyVerified = "already-verified"
	TemplateVerifyEmail     = "verify-email"
	TemplateResetPassword   = "reset-password"
	TemplateDuplicateEmail  = "duplicate-email"
)

// Subjects used with each template.
const (
	SubjectUnregistered    = "Unregistered Email Address"
	SubjectAlreadyVerified = "Your Email Address has Already Been Verified"
	SubjectVerifyEmail     = "Please Verify Your Email Address"
	SubjectResetPassword   = "Reset Your Password"
	SubjectDuplicateEmail  = "Your Email Address has Already Been Registered"
)

// Notification is a templated message addressed to a recipient list.
type Notification struct {
	TemplateName string
	Subject      string
	Recipients   []string
	From         string
	Context      map[string]any
}
