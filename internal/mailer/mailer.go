package mailer

// Attachment is a file shipped with an email, typically the ticket document.
type Attachment struct {
	Name string
	Data []byte
}

type Mailer interface {
	Send(recipient, templateFile string, data any) error
	SendWithAttachment(recipient, templateFile string, data any, attachment Attachment) error
}
