package mailer

import (
	"fmt"
	"html"

	"github.com/ymcoiffure/salon-bookings/internal/domain"
)

type message struct {
	subject string
	text    string
	html    string
}

func verificationMessage(s Salon, code string) message {
	return message{
		subject: fmt.Sprintf("Code de validation – %s", s.Name),
		text:    fmt.Sprintf("Votre code de confirmation %s : %s", s.Name, code),
		html: fmt.Sprintf(`
			<div style="font-family:sans-serif;text-align:center;padding:20px;color:#333;">
				<h2>%s</h2>
				<p>Votre code de confirmation :</p>
				<h1 style="background:#000;color:#fff;padding:10px;display:inline-block;letter-spacing:5px;">%s</h1>
			</div>`, html.EscapeString(s.Name), code),
	}
}

func confirmationMessage(s Salon, a *domain.Appointment, cancelURL string) message {
	text := fmt.Sprintf("Bonjour %s,\n\nVotre rendez-vous chez %s est confirmé le %s à %s.\n%s",
		a.ClientName, s.Name, a.Date, a.Time, s.Address)
	cancelHTML := ""
	if cancelURL != "" {
		text += fmt.Sprintf("\n\nPour annuler : %s", cancelURL)
		cancelHTML = fmt.Sprintf(`<p style="font-size:12px;"><a href="%s">Annuler ce rendez-vous</a></p>`, html.EscapeString(cancelURL))
	}
	return message{
		subject: fmt.Sprintf("✅ Rendez-vous confirmé – %s", s.Name),
		text:    text,
		html: fmt.Sprintf(`
			<div style="font-family:sans-serif;padding:20px;border:1px solid #eee;border-radius:12px;text-align:center;color:#333;">
				<h2>Rendez-vous confirmé ✂️</h2>
				<p>Bonjour <b>%s</b>,</p>
				<p style="font-size:20px;font-weight:bold;">%s à %s</p>
				<p>📍 %s</p>
				%s
			</div>`,
			html.EscapeString(a.ClientName), a.Date, a.Time, html.EscapeString(s.Address), cancelHTML),
	}
}

func reminderMessage(s Salon, a *domain.Appointment) message {
	return message{
		subject: fmt.Sprintf("🔔 Rappel : Votre rendez-vous chez %s", s.Name),
		text: fmt.Sprintf("Bonjour %s,\n\nPetit rappel : votre rendez-vous est prévu le %s à %s.\n%s\n\nMerci de prévenir en cas de retard ou d'annulation.",
			a.ClientName, a.Date, a.Time, s.Address),
		html: fmt.Sprintf(`
			<div style="font-family:sans-serif;padding:20px;border:1px solid #eee;border-radius:12px;text-align:center;color:#333;">
				<h2 style="color:#000;">Petit rappel ✂️</h2>
				<p>Bonjour <b>%s</b>,</p>
				<p>Votre rendez-vous est prévu le %s à :</p>
				<p style="font-size:20px;font-weight:bold;">%s</p>
				<p>📍 %s</p>
				<hr style="border:0;border-top:1px solid #eee;margin:20px 0;">
				<p style="font-size:12px;color:#888;">Merci de prévenir en cas de retard ou d'annulation.</p>
			</div>`,
			html.EscapeString(a.ClientName), a.Date, a.Time, html.EscapeString(s.Address)),
	}
}
