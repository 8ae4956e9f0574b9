package auth

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"marketplace-auth/identity"
	"marketplace-auth/models"
	"marketplace-auth/navigation"
	"marketplace-auth/provision"

	"github.com/stretchr/testify/assert"
)

type fakeGateway struct {
	signUpResult    identity.SignUpResult
	signUpErr       error
	session         models.Session
	signInErr       error
	federated       identity.FederatedIdentity
	federatedErr    error
	signOutErr      error
	signInCalls     int
	signOutTokens   []string
	federatedKind   identity.ProviderKind
	federatedSecret string
}

func (g *fakeGateway) SignUpWithPassword(ctx context.Context, email, password string) (identity.SignUpResult, error) {
	return g.signUpResult, g.signUpErr
}

func (g *fakeGateway) SignInWithPassword(ctx context.Context, email, password string) (models.Session, error) {
	g.signInCalls++
	return g.session, g.signInErr
}

func (g *fakeGateway) SignInWithProvider(ctx context.Context, kind identity.ProviderKind, credential string) (identity.FederatedIdentity, error) {
	g.federatedKind = kind
	g.federatedSecret = credential
	return g.federated, g.federatedErr
}

func (g *fakeGateway) SignOut(ctx context.Context, refreshToken string) error {
	g.signOutTokens = append(g.signOutTokens, refreshToken)
	return g.signOutErr
}

type fakeProvisioner struct {
	subjects []provision.Subject
	err      error
}

func (p *fakeProvisioner) EnsureAccountExists(ctx context.Context, subject provision.Subject) (bool, error) {
	p.subjects = append(p.subjects, subject)
	return p.err == nil, p.err
}

type fakeMetadataStore struct {
	metadata map[string]models.UserMetadata
	err      error
}

func (s *fakeMetadataStore) Once(ctx context.Context, path string, out interface{}) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	metadata, ok := s.metadata[path]
	if !ok {
		return false, nil
	}
	if out != nil {
		payload, _ := json.Marshal(metadata)
		json.Unmarshal(payload, out)
	}
	return true, nil
}

func (s *fakeMetadataStore) Set(ctx context.Context, path string, value interface{}) error {
	return nil
}

func (s *fakeMetadataStore) SetIfAbsent(ctx context.Context, path string, value interface{}) (bool, error) {
	return false, nil
}

func (s *fakeMetadataStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	return nil
}

func (s *fakeMetadataStore) Close() error { return nil }

type fakeResolver struct {
	providers []identity.ProviderKind
	err       error
}

func (r *fakeResolver) ProvidersForEmail(ctx context.Context, email string) ([]identity.ProviderKind, error) {
	return r.providers, r.err
}

type fakeVerifier struct {
	sent [][3]string
}

func (v *fakeVerifier) SendVerification(receiverEmail, receiverName, uid string) {
	v.sent = append(v.sent, [3]string{receiverEmail, receiverName, uid})
}

type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) Dispatch(event Event) {
	r.events = append(r.events, event)
}

func (r *eventRecorder) types() []EventType {
	types := make([]EventType, 0, len(r.events))
	for _, event := range r.events {
		types = append(types, event.Type)
	}
	return types
}

func TestSignUpWithPasswordSuccess(t *testing.T) {
	gateway := &fakeGateway{signUpResult: identity.SignUpResult{SubjectID: "uid-123", RefreshToken: "provider-refresh"}}
	provisioner := &fakeProvisioner{}
	verifier := &fakeVerifier{}
	orchestrator := NewOrchestrator(gateway, provisioner, &fakeMetadataStore{}, &fakeResolver{}, verifier)
	recorder := &eventRecorder{}

	outcome := orchestrator.SignUpWithPassword(context.Background(), "new@example.com", "password123", "New User", models.UserTypePhotographer, recorder)

	assert.False(t, outcome.Failed)
	assert.Equal(t, "uid-123", outcome.UID)
	assert.Equal(t, navigation.CheckMail, outcome.Destination)
	assert.Equal(t, []EventType{SignupStart, SignupSuccess}, recorder.types())

	assert.Equal(t, [][3]string{{"new@example.com", "New User", "uid-123"}}, verifier.sent)

	assert.Len(t, provisioner.subjects, 1)
	assert.Equal(t, identity.ProviderPassword, provisioner.subjects[0].Provider)
	assert.Equal(t, models.UserTypePhotographer, provisioner.subjects[0].UserType)

	// Registration does not imply login: the provider session is revoked.
	assert.Equal(t, []string{"provider-refresh"}, gateway.signOutTokens)
}

func TestSignUpWithPasswordGatewayError(t *testing.T) {
	gateway := &fakeGateway{signUpErr: identity.ErrEmailInUse}
	orchestrator := NewOrchestrator(gateway, &fakeProvisioner{}, &fakeMetadataStore{}, &fakeResolver{}, &fakeVerifier{})
	recorder := &eventRecorder{}

	outcome := orchestrator.SignUpWithPassword(context.Background(), "dup@example.com", "password123", "Dup User", models.UserTypeTraveller, recorder)

	assert.True(t, outcome.Failed)
	assert.ErrorIs(t, outcome.Err, identity.ErrEmailInUse)
	assert.Equal(t, []EventType{SignupStart, SignupError}, recorder.types())

	payload, ok := recorder.events[1].Payload.(SignupErrorPayload)
	assert.True(t, ok)
	assert.Equal(t, "Dup User", payload.DisplayName)
	assert.Equal(t, "dup@example.com", payload.Email)
	assert.Equal(t, identity.ErrEmailInUse.Error(), payload.Message)
}

func TestSignUpWithPasswordProvisioningFailureSucceeds(t *testing.T) {
	gateway := &fakeGateway{signUpResult: identity.SignUpResult{SubjectID: "uid-123", RefreshToken: "provider-refresh"}}
	provisioner := &fakeProvisioner{err: errors.New("store down")}
	orchestrator := NewOrchestrator(gateway, provisioner, &fakeMetadataStore{}, &fakeResolver{}, &fakeVerifier{})
	recorder := &eventRecorder{}

	outcome := orchestrator.SignUpWithPassword(context.Background(), "new@example.com", "password123", "New User", models.UserTypeTraveller, recorder)

	assert.False(t, outcome.Failed)
	assert.Equal(t, []EventType{SignupStart, SignupSuccess}, recorder.types())
}

func TestSignInWithPasswordProviderMismatch(t *testing.T) {
	gateway := &fakeGateway{}
	resolver := &fakeResolver{providers: []identity.ProviderKind{identity.ProviderGoogle}}
	orchestrator := NewOrchestrator(gateway, &fakeProvisioner{}, &fakeMetadataStore{}, resolver, &fakeVerifier{})
	recorder := &eventRecorder{}

	outcome := orchestrator.SignInWithPassword(context.Background(), "google@example.com", "password123", recorder)

	assert.Equal(t, StateFailed, outcome.State)
	var mismatch *ProviderMismatchError
	assert.ErrorAs(t, outcome.Err, &mismatch)
	assert.Equal(t, `Your account is registered using Google. Then you must click "Login with Google" button.`, outcome.Err.Error())

	// The credential attempt never reaches the identity provider.
	assert.Equal(t, 0, gateway.signInCalls)
}

func TestSignInWithPasswordNoRegisteredProviders(t *testing.T) {
	orchestrator := NewOrchestrator(&fakeGateway{}, &fakeProvisioner{}, &fakeMetadataStore{}, &fakeResolver{}, &fakeVerifier{})
	recorder := &eventRecorder{}

	outcome := orchestrator.SignInWithPassword(context.Background(), "nobody@example.com", "password123", recorder)

	assert.Equal(t, StateFailed, outcome.State)
	assert.ErrorIs(t, outcome.Err, identity.ErrInvalidCredentials)
}

func TestSignInWithPasswordLookupError(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("Account not found.")}
	orchestrator := NewOrchestrator(&fakeGateway{}, &fakeProvisioner{}, &fakeMetadataStore{}, resolver, &fakeVerifier{})
	recorder := &eventRecorder{}

	outcome := orchestrator.SignInWithPassword(context.Background(), "user@example.com", "password123", recorder)

	assert.Equal(t, StateFailed, outcome.State)
	assert.EqualError(t, outcome.Err, "Account not found.")
}

func TestSignInWithPasswordUnverified(t *testing.T) {
	gateway := &fakeGateway{session: models.Session{UID: "uid-123", Email: "user@example.com", EmailVerified: false}}
	resolver := &fakeResolver{providers: []identity.ProviderKind{identity.ProviderPassword}}
	orchestrator := NewOrchestrator(gateway, &fakeProvisioner{}, &fakeMetadataStore{}, resolver, &fakeVerifier{})
	recorder := &eventRecorder{}

	outcome := orchestrator.SignInWithPassword(context.Background(), "user@example.com", "password123", recorder)

	assert.Equal(t, StateFailed, outcome.State)
	assert.ErrorIs(t, outcome.Err, ErrNotVerified)
	assert.Equal(t, []EventType{LoginStart, LoginError}, recorder.types())
}

func TestSignInWithPasswordFetchesMetadata(t *testing.T) {
	gateway := &fakeGateway{session: models.Session{UID: "uid-123", Email: "photo@example.com", EmailVerified: true}}
	resolver := &fakeResolver{providers: []identity.ProviderKind{identity.ProviderPassword}}
	records := &fakeMetadataStore{metadata: map[string]models.UserMetadata{
		"user_metadata/uid-123": {UID: "uid-123", UserType: models.UserTypePhotographer, FirstLogin: true},
	}}
	orchestrator := NewOrchestrator(gateway, &fakeProvisioner{}, records, resolver, &fakeVerifier{})
	recorder := &eventRecorder{}

	outcome := orchestrator.SignInWithPassword(context.Background(), "photo@example.com", "password123", recorder)

	assert.Equal(t, StateMetadataFetched, outcome.State)
	assert.Equal(t, "uid-123", outcome.Metadata.UID)
	assert.Equal(t, navigation.PhotographerOnboarding, outcome.Destination)
	assert.Equal(t, []EventType{LoginStart, LoginSuccess, MetadataFetched}, recorder.types())
}

func TestSignInWithPasswordMissingMetadata(t *testing.T) {
	gateway := &fakeGateway{session: models.Session{UID: "uid-123", Email: "user@example.com", EmailVerified: true}}
	resolver := &fakeResolver{providers: []identity.ProviderKind{identity.ProviderPassword}}
	orchestrator := NewOrchestrator(gateway, &fakeProvisioner{}, &fakeMetadataStore{}, resolver, &fakeVerifier{})
	recorder := &eventRecorder{}

	outcome := orchestrator.SignInWithPassword(context.Background(), "user@example.com", "password123", recorder)

	assert.Equal(t, StateAuthenticated, outcome.State)
	assert.Equal(t, "uid-123", outcome.Session.UID)
	assert.Equal(t, []EventType{LoginStart, LoginSuccess}, recorder.types())
}

func TestSignInWithProviderProvisionsAndCompletes(t *testing.T) {
	gateway := &fakeGateway{federated: identity.FederatedIdentity{
		UID:           "uid-456",
		Email:         "google@example.com",
		DisplayName:   "Google User",
		EmailVerified: true,
		RefreshToken:  "provider-refresh",
	}}
	provisioner := &fakeProvisioner{}
	records := &fakeMetadataStore{metadata: map[string]models.UserMetadata{
		"user_metadata/uid-456": {UID: "uid-456", UserType: models.UserTypeTraveller},
	}}
	orchestrator := NewOrchestrator(gateway, provisioner, records, &fakeResolver{}, &fakeVerifier{})
	recorder := &eventRecorder{}

	outcome := orchestrator.SignInWithProvider(context.Background(), identity.ProviderGoogle, "oauth-token", models.UserTypeTraveller, recorder)

	assert.Equal(t, StateMetadataFetched, outcome.State)
	assert.Equal(t, navigation.Home, outcome.Destination)
	assert.Equal(t, identity.ProviderGoogle, gateway.federatedKind)
	assert.Equal(t, []EventType{LoginStart, LoginSuccess, MetadataFetched}, recorder.types())

	assert.Len(t, provisioner.subjects, 1)
	assert.Equal(t, identity.ProviderGoogle, provisioner.subjects[0].Provider)
	assert.Equal(t, "uid-456", provisioner.subjects[0].UID)
}

func TestSignInWithProviderGatewayError(t *testing.T) {
	gateway := &fakeGateway{federatedErr: identity.ErrPopupClosed}
	orchestrator := NewOrchestrator(gateway, &fakeProvisioner{}, &fakeMetadataStore{}, &fakeResolver{}, &fakeVerifier{})
	recorder := &eventRecorder{}

	outcome := orchestrator.SignInWithProvider(context.Background(), identity.ProviderFacebook, "oauth-token", models.UserTypeTraveller, recorder)

	assert.Equal(t, StateFailed, outcome.State)
	assert.ErrorIs(t, outcome.Err, identity.ErrPopupClosed)
	assert.Equal(t, []EventType{LoginStart, LoginError}, recorder.types())
}

func TestSignInWithProviderProvisioningFailureStillLogsIn(t *testing.T) {
	gateway := &fakeGateway{federated: identity.FederatedIdentity{UID: "uid-456", Email: "google@example.com", EmailVerified: true}}
	provisioner := &fakeProvisioner{err: errors.New("store down")}
	orchestrator := NewOrchestrator(gateway, provisioner, &fakeMetadataStore{}, &fakeResolver{}, &fakeVerifier{})
	recorder := &eventRecorder{}

	outcome := orchestrator.SignInWithProvider(context.Background(), identity.ProviderGoogle, "oauth-token", models.UserTypeTraveller, recorder)

	assert.Equal(t, StateAuthenticated, outcome.State)
	assert.Equal(t, "uid-456", outcome.Session.UID)
}

func TestSignOutSuccess(t *testing.T) {
	gateway := &fakeGateway{}
	orchestrator := NewOrchestrator(gateway, &fakeProvisioner{}, &fakeMetadataStore{}, &fakeResolver{}, &fakeVerifier{})
	recorder := &eventRecorder{}

	outcome := orchestrator.SignOut(context.Background(), "provider-refresh", recorder)

	assert.Equal(t, navigation.Home, outcome.Destination)
	assert.Equal(t, []EventType{LogoutSuccess}, recorder.types())
	assert.Equal(t, []string{"provider-refresh"}, gateway.signOutTokens)
}

func TestSignOutFailOpen(t *testing.T) {
	gateway := &fakeGateway{signOutErr: errors.New("provider down")}
	orchestrator := NewOrchestrator(gateway, &fakeProvisioner{}, &fakeMetadataStore{}, &fakeResolver{}, &fakeVerifier{})
	recorder := &eventRecorder{}

	outcome := orchestrator.SignOut(context.Background(), "provider-refresh", recorder)

	assert.Equal(t, navigation.Home, outcome.Destination)
	assert.Equal(t, []EventType{LogoutError}, recorder.types())
}
