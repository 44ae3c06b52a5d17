package delivery

import (
	"fmt"
	"html"

	"github.com/molunlade/contact-api/internal/models"
)

// notificationSubject builds the subject line used by every email channel.
func notificationSubject(sub models.Submission) string {
	return fmt.Sprintf("New message from %s: %s", sub.Name, sub.Subject)
}

// notificationText builds the plain-text body.
func notificationText(sub models.Submission) string {
	return fmt.Sprintf("%s\n\nFrom: %s <%s>", sub.Message, sub.Name, sub.Email)
}

// notificationHTML builds the HTML body. Field values were sanitized at intake,
// but this escapes again so the template is safe on its own.
func notificationHTML(sub models.Submission) string {
	return fmt.Sprintf(
		"<p>%s</p><hr><p>From: <strong>%s</strong> &lt;%s&gt;</p><p>Request ID: <code>%s</code></p>",
		html.EscapeString(sub.Message),
		html.EscapeString(sub.Name),
		html.EscapeString(sub.Email),
		html.EscapeString(sub.RequestID),
	)
}
