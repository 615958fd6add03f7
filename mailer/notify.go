package mailer

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	pongo2 "github.com/flosch/pongo2/v6"

	"github.com/padraicbc/trainerpages/models"
)

var (
	//go:embed templates/admin_new_submission.html.j2
	adminNewSubmissionSrc string
	//go:embed templates/trainer_confirmation.html.j2
	trainerConfirmationSrc string

	adminNewSubmission  = pongo2.Must(pongo2.FromString(adminNewSubmissionSrc))
	trainerConfirmation = pongo2.Must(pongo2.FromString(trainerConfirmationSrc))
)

// Notifier sends the emails that follow a new submission.
type Notifier struct {
	Mailer  Mailer
	From    string
	AdminTo string
	// AdminURL links the admin email to the review screen.
	AdminURL string
}

// SubmissionReceived tells the admin about a new submission and confirms receipt
// to the trainer. Both sends are attempted; failures are joined.
func (n *Notifier) SubmissionReceived(ctx context.Context, s *models.Submission) error {
	var errs []error

	if n.AdminTo != "" {
		html, err := adminNewSubmission.Execute(pongo2.Context{"s": s, "id": s.ID.String(), "adminURL": n.AdminURL})
		if err != nil {
			errs = append(errs, fmt.Errorf("render admin email: %w", err))
		} else {
			errs = append(errs, n.Mailer.Send(ctx, Message{
				From:    n.From,
				To:      []string{n.AdminTo},
				ReplyTo: s.Email,
				Subject: fmt.Sprintf("New trainer submission: %s", s.FullName),
				HTML:    html,
				Text:    fmt.Sprintf("%s (%s) submitted an intake form. Slug: %s", s.FullName, s.Email, s.Slug),
			}))
		}
	}

	html, err := trainerConfirmation.Execute(pongo2.Context{"s": s})
	if err != nil {
		errs = append(errs, fmt.Errorf("render confirmation email: %w", err))
	} else {
		errs = append(errs, n.Mailer.Send(ctx, Message{
			From:    n.From,
			To:      []string{s.Email},
			Subject: "We received your details",
			HTML:    html,
			Text:    fmt.Sprintf("Hi %s, thanks for sending your details. We'll be in touch once your page is reviewed.", s.FullName),
		}))
	}

	return errors.Join(errs...)
}
