// Package gmail provides a send-only client for the Gmail API.
//
// Messages are rendered as RFC 2822 text, with non-ASCII subjects encoded
// per RFC 2047, and delivered through users.messages.send for the
// authenticated user. The Sender interface lets callers substitute a fake.
//
// Example usage:
//
//	client, err := gmail.NewClientForAccount(ctx, "default")
//	if err != nil {
//	    return err
//	}
//
//	msgID, err := client.SendEmail(ctx, &gmail.EmailMessage{
//	    To:      []string{"recipient@example.com"},
//	    Subject: "Hello",
//	    Body:    "This is a test email",
//	})
package gmail
