package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"health-reminders/internal/models"
)

const layoutHTML = `{{define "layout"}}<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
  .email-container { font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f9f9f9; }
  .header { background-color: #4A90E2; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
  .content { background-color: white; padding: 20px; border-radius: 0 0 8px 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
  .info-list { list-style: none; padding: 0; }
  .info-list li { padding: 10px 0; border-bottom: 1px solid #eee; }
  .footer { text-align: center; margin-top: 20px; color: #666; font-size: 12px; }
  .alert { padding: 10px; border-radius: 4px; margin: 10px 0; }
  .alert-warning { background-color: #fff3cd; border: 1px solid #ffeeba; color: #856404; }
  .alert-danger { background-color: #f8d7da; border: 1px solid #f5c6cb; color: #721c24; }
</style>
</head>
<body>
<div class="email-container">
{{template "body" .}}
  <div class="footer">
    <p>This is an automated message from your {{.AppName}}.</p>
    <p>If you have any questions, please contact support.</p>
  </div>
</div>
</body>
</html>{{end}}`

const medicationReminderHTML = `{{define "body"}}
  <div class="header"><h2>🔔 Medication Reminder</h2></div>
  <div class="content">
    <p>Hello{{if .UserName}} {{.UserName}}{{end}}! This is a reminder that it's time to take your medication:</p>
    <ul class="info-list">
      <li><strong>Medication:</strong> {{.Medication.Name}}</li>
      <li><strong>Dosage:</strong> {{.Medication.Dosage}}</li>
      <li><strong>Time:</strong> {{.Medication.Time}}</li>
      <li><strong>Frequency:</strong> {{.Medication.Frequency}}</li>
    </ul>
    <div class="alert alert-warning">
      <p>⚠️ Please make sure to take your medication as prescribed.</p>
    </div>
  </div>
{{end}}`

const medicationExpiryHTML = `{{define "body"}}
  <div class="header"><h2>🏥 Medication Expiry Alert</h2></div>
  <div class="content">
    <div class="alert {{if .Expired}}alert-danger{{else}}alert-warning{{end}}">
      <p>{{if .Expired}}⚠️ Your medication has expired!{{else}}⚠️ Your medication will expire in {{.DaysUntilExpiry}} days.{{end}}</p>
    </div>
    <ul class="info-list">
      <li><strong>Medication:</strong> {{.Medication.Name}}</li>
      <li><strong>Dosage:</strong> {{.Medication.Dosage}}</li>
      <li><strong>Expiry Date:</strong> {{.ExpiryDate}}</li>
    </ul>
    <p><strong>Action Required:</strong></p>
    <p>{{if .Expired}}❗ Please consult your healthcare provider for a new prescription. Do not take expired medications.{{else}}📋 Please plan to refill your prescription soon to ensure continuous treatment.{{end}}</p>
  </div>
{{end}}`

const mealReminderHTML = `{{define "body"}}
  <div class="header"><h2>🍽️ Meal Time Reminder</h2></div>
  <div class="content">
    <p>Hello{{if .UserName}} {{.UserName}}{{end}}! It's time for your {{.MealName}}:</p>
    <div class="alert alert-warning">
      <p>{{.MealContent}}</p>
    </div>
    <p>Remember to stay hydrated and enjoy your meal mindfully!</p>
  </div>
{{end}}`

const medicationReminderText = `Medication reminder

It's time to take your medication:
  Medication: {{.Medication.Name}}
  Dosage: {{.Medication.Dosage}}
  Time: {{.Medication.Time}}
  Frequency: {{.Medication.Frequency}}

Please make sure to take your medication as prescribed.
`

const medicationExpiryText = `Medication expiry alert

{{if .Expired}}Your medication has expired!{{else}}Your medication will expire in {{.DaysUntilExpiry}} days.{{end}}
  Medication: {{.Medication.Name}}
  Dosage: {{.Medication.Dosage}}
  Expiry Date: {{.ExpiryDate}}

{{if .Expired}}Please consult your healthcare provider for a new prescription. Do not take expired medications.{{else}}Please plan to refill your prescription soon to ensure continuous treatment.{{end}}
`

const mealReminderText = `Meal time reminder

It's time for your {{.MealName}}:
  {{.MealContent}}
`

// Email is a rendered notification.
type Email struct {
	Subject string
	HTML    string
	Text    string
}

type emailTemplate struct {
	html *template.Template
	text *texttemplate.Template
}

func mustTemplate(name, body, text string) emailTemplate {
	html := template.Must(template.New(name).Parse(layoutHTML))
	template.Must(html.Parse(body))
	return emailTemplate{
		html: html,
		text: texttemplate.Must(texttemplate.New(name).Parse(text)),
	}
}

var (
	medicationReminderTmpl = mustTemplate("medication-reminder", medicationReminderHTML, medicationReminderText)
	medicationExpiryTmpl   = mustTemplate("medication-expiry", medicationExpiryHTML, medicationExpiryText)
	mealReminderTmpl       = mustTemplate("meal-reminder", mealReminderHTML, mealReminderText)
)

func (t emailTemplate) render(subject string, data interface{}) (*Email, error) {
	var html, text bytes.Buffer
	if err := t.html.ExecuteTemplate(&html, "layout", data); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	if err := t.text.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("render text: %w", err)
	}
	return &Email{Subject: subject, HTML: html.String(), Text: text.String()}, nil
}

type medicationData struct {
	AppName         string
	UserName        string
	Medication      *models.Medication
	Expired         bool
	DaysUntilExpiry int
	ExpiryDate      string
}

type mealData struct {
	AppName     string
	UserName    string
	MealName    string
	MealContent string
}

// Renderer builds the reminder emails.
type Renderer struct {
	AppName string
}

func (r Renderer) appName() string {
	if r.AppName == "" {
		return "Health & Fitness App"
	}
	return r.AppName
}

// MedicationReminder renders the dosing reminder.
func (r Renderer) MedicationReminder(userName string, med *models.Medication) (*Email, error) {
	return medicationReminderTmpl.render(
		fmt.Sprintf("Medication Reminder: Time to take %s", med.Name),
		medicationData{AppName: r.appName(), UserName: userName, Medication: med},
	)
}

// MedicationExpiry renders the expiry email. Zero or negative days use the
// expired wording.
func (r Renderer) MedicationExpiry(userName string, med *models.Medication, daysUntilExpiry int) (*Email, error) {
	expired := daysUntilExpiry <= 0
	subject := fmt.Sprintf("Medication Expiry Alert: %s", med.Name)
	if expired {
		subject = "⚠️ " + subject
	}
	return medicationExpiryTmpl.render(subject, medicationData{
		AppName:         r.appName(),
		UserName:        userName,
		Medication:      med,
		Expired:         expired,
		DaysUntilExpiry: daysUntilExpiry,
		ExpiryDate:      formatExpiry(med),
	})
}

// MealReminder renders the meal reminder.
func (r Renderer) MealReminder(userName, mealName, mealContent string) (*Email, error) {
	return mealReminderTmpl.render(
		fmt.Sprintf("🍽️ Meal Time Reminder: %s", mealName),
		mealData{AppName: r.appName(), UserName: userName, MealName: mealName, MealContent: strings.TrimSpace(mealContent)},
	)
}

func formatExpiry(med *models.Medication) string {
	expires := med.ExpiresOn()
	if expires == nil || expires.IsZero() {
		return "N/A"
	}
	return expires.Format("Jan 2, 2006")
}

// smsBody is the short text sent for expired medications.
func smsBody(med *models.Medication, now time.Time) string {
	return fmt.Sprintf("Health reminder (%s): %s has expired. Please consult your healthcare provider before taking it.",
		now.Format("Jan 2"), med.Name)
}
