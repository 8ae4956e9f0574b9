package auth

import (
	"errors"
	"fmt"

	"marketplace-auth/identity"
)

// ErrNotVerified blocks password sign-in until the email address is
// verified. Its message is shown to the user as-is.
var ErrNotVerified = errors.New("User not verified.")

// ProviderMismatchError reports a password login attempt against an
// account registered with a federated provider.
type ProviderMismatchError struct {
	Provider identity.ProviderKind
}

func (e *ProviderMismatchError) Error() string {
	name := e.Provider.DisplayName()
	return fmt.Sprintf(
		"Your account is registered using %s. Then you must click %q button.",
		name, "Login with "+name,
	)
}
