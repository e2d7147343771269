package ses

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/wolfsoftwaresystemsltd/WolfScale-sub001/internal/mail"
)

// mockSESClient implements SendEmailAPI for testing.
type mockSESClient struct {
	sendFn    func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	callCount int
	lastInput *sesv2.SendEmailInput
}

func (m *mockSESClient) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.callCount++
	m.lastInput = params
	if m.sendFn != nil {
		return m.sendFn(ctx, params, optFns...)
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("test-message-id")}, nil
}

func TestName(t *testing.T) {
	t.Parallel()
	p := NewWithClient("sender@example.com", &mockSESClient{})
	if got := p.Name(); got != "ses" {
		t.Errorf("Name(): got %q, want %q", got, "ses")
	}
}

func TestSend(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := NewWithClient("sender@example.com", mock)

	msg := &mail.Message{
		To:      "to@example.com",
		Subject: "Test Subject",
		Body:    "Hello, World!",
		ReplyTo: "replies@example.com",
	}

	err := p.Send(context.Background(), msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1", mock.callCount)
	}

	input := mock.lastInput
	if input.Content.Simple == nil {
		t.Fatal("expected simple email content, got nil")
	}
	if got := *input.FromEmailAddress; got != "sender@example.com" {
		t.Errorf("FromEmailAddress: got %q, want %q", got, "sender@example.com")
	}
	if got := *input.Content.Simple.Subject.Data; got != "Test Subject" {
		t.Errorf("Subject: got %q, want %q", got, "Test Subject")
	}
	if got := *input.Content.Simple.Body.Text.Data; got != "Hello, World!" {
		t.Errorf("Body: got %q, want %q", got, "Hello, World!")
	}
	if len(input.Destination.ToAddresses) != 1 || input.Destination.ToAddresses[0] != "to@example.com" {
		t.Errorf("ToAddresses: got %v, want [to@example.com]", input.Destination.ToAddresses)
	}
	if len(input.ReplyToAddresses) != 1 || input.ReplyToAddresses[0] != "replies@example.com" {
		t.Errorf("ReplyToAddresses: got %v, want [replies@example.com]", input.ReplyToAddresses)
	}
}

func TestSend_OmitsEmptyReplyTo(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := NewWithClient("sender@example.com", mock)

	msg := &mail.Message{To: "to@example.com", Subject: "Hi", Body: "Hello"}
	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mock.lastInput.ReplyToAddresses) != 0 {
		t.Errorf("ReplyToAddresses: got %v, want empty", mock.lastInput.ReplyToAddresses)
	}
}

func TestSend_RetriesOnFailure(t *testing.T) {
	t.Parallel()

	failures := 2
	mock := &mockSESClient{}
	mock.sendFn = func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
		if mock.callCount <= failures {
			return nil, errors.New("throttled")
		}
		return &sesv2.SendEmailOutput{MessageId: aws.String("ok")}, nil
	}

	p := NewWithClient("sender@example.com", mock)
	msg := &mail.Message{To: "to@example.com", Subject: "Hi", Body: "Hello"}

	err := p.Send(context.Background(), msg)
	if err != nil {
		t.Fatalf("unexpected error after retries: %v", err)
	}
	if mock.callCount != failures+1 {
		t.Errorf("call count: got %d, want %d", mock.callCount, failures+1)
	}
}

func TestSend_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	mock.sendFn = func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
		return nil, errors.New("permanent failure")
	}

	p := NewWithClient("sender@example.com", mock)
	msg := &mail.Message{To: "to@example.com", Subject: "Hi", Body: "Hello"}

	err := p.Send(context.Background(), msg)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if !strings.Contains(err.Error(), "permanent failure") {
		t.Errorf("error %q does not wrap the last failure", err)
	}
	if mock.callCount != maxRetries+1 {
		t.Errorf("call count: got %d, want %d", mock.callCount, maxRetries+1)
	}
}

func TestSend_ContextCancelledDuringRetry(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	mock.sendFn = func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
		return nil, errors.New("throttled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewWithClient("sender@example.com", mock)
	msg := &mail.Message{To: "to@example.com", Subject: "Hi", Body: "Hello"}

	err := p.Send(ctx, msg)
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error: got %v, want context.Canceled", err)
	}
}
