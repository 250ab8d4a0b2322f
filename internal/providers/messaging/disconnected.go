package messaging

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by the disconnected provider. Callers
// treat it like any other provider failure: actions defer, batches
// continue.
var ErrNotConfigured = errors.New("messaging provider not configured")

// Disconnected is the default Provider when no adapter is wired in.
// It keeps the core runnable (sourcing returns nothing, sends fail
// transiently) without faking any provider behavior.
type Disconnected struct{}

func NewDisconnected() Provider { return Disconnected{} }

func (Disconnected) SearchProfiles(context.Context, string, int) ([]Profile, error) {
	return nil, ErrNotConfigured
}
func (Disconnected) EnrichProfile(_ context.Context, p Profile) (Profile, error) {
	return p, ErrNotConfigured
}
func (Disconnected) SendMessage(context.Context, string, Profile, string) (SendResult, error) {
	return SendResult{}, ErrNotConfigured
}
func (Disconnected) SendConnectionRequest(context.Context, string, Profile, string) (ConnectResult, error) {
	return ConnectResult{}, ErrNotConfigured
}
func (Disconnected) CheckConnectionStatus(context.Context, string, Profile) (bool, error) {
	return false, ErrNotConfigured
}
func (Disconnected) FetchChatMessages(context.Context, string, int) ([]ChatMessage, error) {
	return nil, ErrNotConfigured
}
