// Package auth drives the sign-up, sign-in and sign-out flows against
// the identity provider, provisioning canonical records on the way and
// emitting state transitions to the caller.
package auth

import (
	"context"
	"log"

	"marketplace-auth/identity"
	"marketplace-auth/lookup"
	"marketplace-auth/models"
	"marketplace-auth/navigation"
	"marketplace-auth/provision"
	"marketplace-auth/store"
)

// Provisioner ensures the canonical record for an authenticated subject.
type Provisioner interface {
	EnsureAccountExists(ctx context.Context, subject provision.Subject) (bool, error)
}

// VerificationSender dispatches a verification email, fire-and-forget.
type VerificationSender interface {
	SendVerification(receiverEmail, receiverName, uid string)
}

type Orchestrator struct {
	gateway     identity.Gateway
	provisioner Provisioner
	records     store.Records
	lookup      lookup.Resolver
	verifier    VerificationSender
}

func NewOrchestrator(
	gateway identity.Gateway,
	provisioner Provisioner,
	records store.Records,
	resolver lookup.Resolver,
	verifier VerificationSender,
) *Orchestrator {
	return &Orchestrator{
		gateway:     gateway,
		provisioner: provisioner,
		records:     records,
		lookup:      resolver,
		verifier:    verifier,
	}
}

// SignUpOutcome reports where the sign-up flow ended up. Registration
// never yields an authenticated session.
type SignUpOutcome struct {
	Failed      bool
	UID         string
	Destination navigation.Destination
	Err         error
}

// LoginOutcome is the terminal state of one login attempt.
type LoginOutcome struct {
	State       State
	Session     models.Session
	Metadata    models.UserMetadata
	Destination navigation.Destination
	Err         error
}

// LogoutOutcome always points home; sign-out is fail-open.
type LogoutOutcome struct {
	Destination navigation.Destination
}

// SignUpWithPassword registers a new account. The provider session
// created as a side effect is signed out immediately: registration does
// not imply login, the user first has to verify their email address.
func (o *Orchestrator) SignUpWithPassword(ctx context.Context, email, password, displayName, userType string, dispatch Dispatcher) SignUpOutcome {
	dispatch.Dispatch(Event{Type: SignupStart})

	result, err := o.gateway.SignUpWithPassword(ctx, email, password)
	if err != nil {
		dispatch.Dispatch(Event{Type: SignupError, Payload: SignupErrorPayload{
			Message:     err.Error(),
			DisplayName: displayName,
			Email:       email,
		}})
		return SignUpOutcome{Failed: true, Err: err}
	}

	o.verifier.SendVerification(email, displayName, result.SubjectID)

	if _, err := o.provisioner.EnsureAccountExists(ctx, provision.Subject{
		UID:         result.SubjectID,
		Email:       email,
		DisplayName: displayName,
		UserType:    userType,
		Provider:    identity.ProviderPassword,
	}); err != nil {
		log.Printf("auth: provisioning after sign-up failed for %s: %v", result.SubjectID, err)
	}

	if err := o.gateway.SignOut(ctx, result.RefreshToken); err != nil {
		log.Printf("auth: implicit sign-out after registration failed: %v", err)
	}

	dispatch.Dispatch(Event{Type: SignupSuccess, Payload: SignupCreatedPayload{
		Status:  "OK",
		Message: "User created",
		UID:     result.SubjectID,
	}})

	return SignUpOutcome{UID: result.SubjectID, Destination: navigation.CheckMail}
}

// SignInWithProvider performs a federated login with google.com or
// facebook.com, provisioning the canonical record on first sign-in.
func (o *Orchestrator) SignInWithProvider(ctx context.Context, kind identity.ProviderKind, credential, userType string, dispatch Dispatcher) LoginOutcome {
	dispatch.Dispatch(Event{Type: LoginStart})

	federated, err := o.gateway.SignInWithProvider(ctx, kind, credential)
	if err != nil {
		dispatch.Dispatch(Event{Type: LoginError, Payload: ErrorPayload{Message: err.Error()}})
		return LoginOutcome{State: StateFailed, Err: err}
	}

	if _, err := o.provisioner.EnsureAccountExists(ctx, provision.Subject{
		UID:         federated.UID,
		Email:       federated.Email,
		DisplayName: federated.DisplayName,
		UserType:    userType,
		Provider:    kind,
	}); err != nil {
		// Accepted inconsistency: the provider session exists even if the
		// canonical record could not be written yet.
		log.Printf("auth: provisioning after %s sign-in failed for %s: %v", kind, federated.UID, err)
	}

	session := models.Session{
		UID:           federated.UID,
		Email:         federated.Email,
		EmailVerified: federated.EmailVerified,
		DisplayName:   federated.DisplayName,
		PhotoURL:      federated.PhotoURL,
		RefreshToken:  federated.RefreshToken,
	}
	return o.completeLogin(ctx, session, dispatch)
}

// SignInWithPassword first resolves which providers the email is
// registered under; a password attempt against a federated-only account
// fails without ever reaching the identity gateway.
func (o *Orchestrator) SignInWithPassword(ctx context.Context, email, password string, dispatch Dispatcher) LoginOutcome {
	dispatch.Dispatch(Event{Type: LoginStart})

	providers, err := o.lookup.ProvidersForEmail(ctx, email)
	if err != nil {
		dispatch.Dispatch(Event{Type: LoginError, Payload: ErrorPayload{Message: err.Error()}})
		return LoginOutcome{State: StateFailed, Err: err}
	}

	if len(providers) == 0 {
		dispatch.Dispatch(Event{Type: LoginError, Payload: ErrorPayload{Message: identity.ErrInvalidCredentials.Error()}})
		return LoginOutcome{State: StateFailed, Err: identity.ErrInvalidCredentials}
	}

	if !hasProvider(providers, identity.ProviderPassword) {
		mismatch := &ProviderMismatchError{Provider: providers[0]}
		dispatch.Dispatch(Event{Type: LoginError, Payload: ErrorPayload{Message: mismatch.Error()}})
		return LoginOutcome{State: StateFailed, Err: mismatch}
	}

	session, err := o.gateway.SignInWithPassword(ctx, email, password)
	if err != nil {
		dispatch.Dispatch(Event{Type: LoginError, Payload: ErrorPayload{Message: err.Error()}})
		return LoginOutcome{State: StateFailed, Err: err}
	}

	if !session.EmailVerified {
		dispatch.Dispatch(Event{Type: LoginError, Payload: ErrorPayload{Message: ErrNotVerified.Error()}})
		return LoginOutcome{State: StateFailed, Err: ErrNotVerified}
	}

	return o.completeLogin(ctx, session, dispatch)
}

// SignOut is fail-open: whatever the remote revocation returns, the
// local session is considered cleared and the user lands on home.
func (o *Orchestrator) SignOut(ctx context.Context, refreshToken string, dispatch Dispatcher) LogoutOutcome {
	if err := o.gateway.SignOut(ctx, refreshToken); err != nil {
		log.Printf("auth: sign-out failed: %v", err)
		dispatch.Dispatch(Event{Type: LogoutError})
	} else {
		dispatch.Dispatch(Event{Type: LogoutSuccess})
	}
	return LogoutOutcome{Destination: navigation.Home}
}

// completeLogin is the shared tail of every successful authentication.
// It fetches the canonical metadata record and resolves the
// destination; a session without metadata is still authenticated.
func (o *Orchestrator) completeLogin(ctx context.Context, session models.Session, dispatch Dispatcher) LoginOutcome {
	dispatch.Dispatch(Event{Type: LoginSuccess, Payload: session})

	var metadata models.UserMetadata
	path := store.Path(store.UserMetadataPath, session.UID)
	found, err := o.records.Once(ctx, path, &metadata)
	if err != nil || !found {
		if err != nil {
			log.Printf("auth: metadata fetch for %s failed: %v", session.UID, err)
		} else {
			log.Printf("auth: no metadata record for %s", session.UID)
		}
		return LoginOutcome{State: StateAuthenticated, Session: session}
	}

	dispatch.Dispatch(Event{Type: MetadataFetched, Payload: metadata})

	return LoginOutcome{
		State:       StateMetadataFetched,
		Session:     session,
		Metadata:    metadata,
		Destination: navigation.Resolve(metadata),
	}
}

func hasProvider(providers []identity.ProviderKind, target identity.ProviderKind) bool {
	for _, provider := range providers {
		if provider == target {
			return true
		}
	}
	return false
}
