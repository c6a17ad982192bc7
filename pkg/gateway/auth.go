package gateway

import (
	"context"

	"mercator-hq/archivist/pkg/lifecycle"
)

// Authenticator acquires credentials before a group of external calls.
type Authenticator interface {
	Authenticate(ctx context.Context) error
}

// NoAuth is the Authenticator for services without kerberos.
type NoAuth struct{}

// Authenticate implements Authenticator.
func (NoAuth) Authenticate(context.Context) error { return nil }

// Kinit obtains a kerberos ticket from a keytab.
type Kinit struct {
	Runner    Runner
	Keytab    string
	Principal string

	// User, if set, runs kinit through sudo as that user so the ticket lands
	// in the user's credential cache (used for HDFS).
	User string
}

// Command returns the kinit invocation.
func (k *Kinit) Command() Command {
	cmd := Command{Program: "kinit", Args: []string{"-kt", k.Keytab, k.Principal}}
	if k.User != "" {
		return SudoAs(k.User, cmd)
	}
	return cmd
}

// Authenticate implements Authenticator. It runs kinit on every call; the
// ticket may have expired between two batches of a long run.
func (k *Kinit) Authenticate(ctx context.Context) error {
	if _, err := k.Runner.Run(ctx, k.Command()); err != nil {
		return lifecycle.NewAuthenticationError(k.Principal, err)
	}
	return nil
}
