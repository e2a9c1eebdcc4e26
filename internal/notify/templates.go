package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/wolfman30/inkstudio-platform/internal/events"
)

const emailWrapper = `<div style="font-family: sans-serif; max-width: 600px;">%s<p style="color:#888;font-size:12px;">%s</p></div>`

func wrapHTML(studio, body string) string {
	return fmt.Sprintf(emailWrapper, body, html.EscapeString(studio))
}

func formatWhen(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "to be confirmed"
	}
	return t.In(loc).Format("Monday, January 2, 2006 at 3:04 PM MST")
}

func greeting(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Hi there,"
	}
	return fmt.Sprintf("Hi %s,", name)
}

func (n *Notifier) customerStatusEmail(a events.AppointmentSnapshot, to string) (EmailMessage, bool) {
	when := formatWhen(a.AppointmentDate, n.loc)
	var subject, line string
	switch to {
	case "CONFIRMED":
		subject = "Your tattoo appointment is confirmed"
		line = fmt.Sprintf("Your session on %s is confirmed. See you soon!", when)
	case "CANCELLED":
		subject = "Your tattoo appointment was cancelled"
		line = fmt.Sprintf("Your session on %s has been cancelled. Reply to this email to reschedule.", when)
	case "COMPLETED":
		subject = "Thanks for visiting " + n.studio
		line = "Thanks for sitting with us. Keep the new piece clean and moisturized, and reach out with any aftercare questions."
	case "NO_SHOW":
		subject = "We missed you today"
		line = fmt.Sprintf("We missed you for your session on %s. Reply to this email to book a new time.", when)
	default:
		return EmailMessage{}, false
	}
	body := greeting(a.ClientName) + "\n\n" + line + "\n\n" + n.studio
	return EmailMessage{
		To:      a.ClientEmail,
		ToName:  a.ClientName,
		Subject: subject,
		Body:    body,
		HTML: wrapHTML(n.studio, fmt.Sprintf("<p>%s</p><p>%s</p>",
			html.EscapeString(greeting(a.ClientName)), html.EscapeString(line))),
	}, true
}

func (n *Notifier) bookingAckEmail(b events.BookingRequestedV1) EmailMessage {
	when := formatWhen(b.AppointmentDate, n.loc)
	line := fmt.Sprintf("We received your request for %s. An artist will review it and confirm shortly.", when)
	return EmailMessage{
		To:      b.ClientEmail,
		ToName:  b.ClientName,
		Subject: "We received your booking request",
		Body:    greeting(b.ClientName) + "\n\n" + line + "\n\n" + n.studio,
		HTML: wrapHTML(n.studio, fmt.Sprintf("<p>%s</p><p>%s</p>",
			html.EscapeString(greeting(b.ClientName)), html.EscapeString(line))),
	}
}

func (n *Notifier) studioAlert(subject string, rows [][2]string) EmailMessage {
	var text, table strings.Builder
	for _, r := range rows {
		if strings.TrimSpace(r[1]) == "" {
			continue
		}
		fmt.Fprintf(&text, "%s: %s\n", r[0], r[1])
		fmt.Fprintf(&table, "<tr><td><strong>%s</strong></td><td>%s</td></tr>", html.EscapeString(r[0]), html.EscapeString(r[1]))
	}
	return EmailMessage{
		To:      n.studioEmail,
		ToName:  n.studio,
		Subject: subject,
		Body:    text.String(),
		HTML:    wrapHTML(n.studio, "<table>"+table.String()+"</table>"),
	}
}

func formatCents(cents int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(cents)/100, strings.ToUpper(currency))
}
