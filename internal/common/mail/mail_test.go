package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

func testMessage() Message {
	return Message{
		From:     "reminders@example.com",
		To:       "pat@example.com",
		Subject:  "Medication Reminder: Time to take Aspirin",
		HTMLBody: "<p>Aspirin</p>",
		TextBody: "Aspirin",
	}
}

func TestSESMailer_Send(t *testing.T) {
	mock := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			assert.Equal(t, "pat@example.com", params.Destination.ToAddresses[0])
			assert.Equal(t, "reminders@example.com", *params.Source)
			assert.Equal(t, "Medication Reminder: Time to take Aspirin", *params.Message.Subject.Data)
			assert.Equal(t, "<p>Aspirin</p>", *params.Message.Body.Html.Data)
			assert.Equal(t, "Aspirin", *params.Message.Body.Text.Data)
			return &ses.SendEmailOutput{MessageId: aws.String("ses-123")}, nil
		},
	}

	id, err := NewSESMailer(mock).Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "ses-123", id)
}

func TestSESMailer_SendFailure(t *testing.T) {
	mock := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("throttled")
		},
	}

	_, err := NewSESMailer(mock).Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestSESMailer_RejectsEmptyRecipient(t *testing.T) {
	msg := testMessage()
	msg.To = " "
	_, err := NewSESMailer(&MockSESService{}).Send(context.Background(), msg)
	assert.Error(t, err)
}

func TestSMTPMailer_Send(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p"})

	var gotAddr string
	var gotMsg string
	m.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = string(msg)
		assert.NotNil(t, auth)
		assert.Equal(t, "reminders@example.com", from)
		assert.Equal(t, []string{"pat@example.com"}, to)
		return nil
	}

	id, err := m.Send(context.Background(), testMessage())
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.True(t, strings.HasPrefix(id, "<"))
	assert.Contains(t, id, ".pat@smtp.example.com>")
	assert.Contains(t, gotMsg, "Content-Type: multipart/alternative")
	assert.Contains(t, gotMsg, "<p>Aspirin</p>")
	assert.Contains(t, gotMsg, "Message-ID: "+id)
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: 25})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Send(ctx, testMessage())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildMessage_EncodesSubject(t *testing.T) {
	msg := testMessage()
	msg.Subject = "🍽️ Meal Time Reminder: Lunch"
	msg.TextBody = ""

	raw := string(buildMessage(msg, "<1.pat@host>"))
	assert.Contains(t, raw, "Subject: =?utf-8?q?")
	assert.Contains(t, raw, "Content-Type: text/html; charset=UTF-8")
}
