package notifications

import (
	"fmt"

	"github.com/osteele/liquid"
)

const (
	invitationSubject = `{{ leader_name }} invited you to join {% if team_name != "" %}{{ team_name }} at {% endif %}{{ event_title }}`
	invitationText    = `Hi {{ member_name }},

{{ leader_name }} registered a team for {{ event_title }} and added you as a member.

Confirm your spot: {{ accept_url }}

If you were not expecting this, you can ignore this email.`
	invitationHTML = `<p>Hi {{ member_name | escape }},</p>
<p>{{ leader_name | escape }} registered a team for <strong>{{ event_title | escape }}</strong> and added you as a member.</p>
<p><a href="{{ accept_url }}">Confirm your spot</a></p>
<p>If you were not expecting this, you can ignore this email.</p>`

	confirmationSubject = `You're registered for {{ event_title }}`
	confirmationText    = `Hi {{ name }},

Your registration for {{ event_title }} was received (status: {{ status }}).

Your ticket code: {{ qr_code }}`
	confirmationHTML = `<p>Hi {{ name | escape }},</p>
<p>Your registration for <strong>{{ event_title | escape }}</strong> was received (status: {{ status }}).</p>
<p>Your ticket code: <code>{{ qr_code | escape }}</code></p>`
)

type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

type messageTemplates struct {
	subject, text, html *liquid.Template
}

// Templates holds the parsed liquid templates for every message kind.
type Templates struct {
	invitation   messageTemplates
	confirmation messageTemplates
}

func NewTemplates() (*Templates, error) {
	engine := liquid.NewEngine()

	invitation, err := parseSet(engine, invitationSubject, invitationText, invitationHTML)
	if err != nil {
		return nil, fmt.Errorf("invitation template: %w", err)
	}
	confirmation, err := parseSet(engine, confirmationSubject, confirmationText, confirmationHTML)
	if err != nil {
		return nil, fmt.Errorf("confirmation template: %w", err)
	}

	return &Templates{invitation: invitation, confirmation: confirmation}, nil
}

func parseSet(engine *liquid.Engine, subject, text, html string) (messageTemplates, error) {
	var set messageTemplates
	var err error

	if set.subject, err = engine.ParseString(subject); err != nil {
		return set, err
	}
	if set.text, err = engine.ParseString(text); err != nil {
		return set, err
	}
	if set.html, err = engine.ParseString(html); err != nil {
		return set, err
	}
	return set, nil
}

func (s messageTemplates) render(b liquid.Bindings) (Rendered, error) {
	var out Rendered
	var err error

	if out.Subject, err = s.subject.RenderString(b); err != nil {
		return out, err
	}
	if out.Text, err = s.text.RenderString(b); err != nil {
		return out, err
	}
	if out.HTML, err = s.html.RenderString(b); err != nil {
		return out, err
	}
	return out, nil
}

func (t *Templates) Invitation(in Invitation) (Rendered, error) {
	return t.invitation.render(liquid.Bindings{
		"member_name": in.MemberName,
		"leader_name": in.LeaderName,
		"team_name":   in.TeamName,
		"event_title": in.EventTitle,
		"accept_url":  in.AcceptURL,
	})
}

func (t *Templates) RegistrationConfirmation(in RegistrationConfirmation) (Rendered, error) {
	return t.confirmation.render(liquid.Bindings{
		"name":        in.Name,
		"event_title": in.EventTitle,
		"status":      in.Status,
		"qr_code":     in.QRCode,
	})
}
