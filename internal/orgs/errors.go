package orgs

import "errors"

var (
	// ErrOrgNotFound is returned by stores when no organization matches.
	ErrOrgNotFound = errors.New("organization not found")

	// ErrNotMember is returned when the actor does not belong to the organization.
	// Handlers answer 404 so organization IDs cannot be enumerated.
	ErrNotMember = errors.New("user is not a member of this organization")

	// ErrInsufficientPermissions is returned when the actor's role is too low.
	ErrInsufficientPermissions = errors.New("insufficient permissions")

	ErrInvalidOrgRole    = errors.New("invalid organization role")
	ErrMemberNotFound    = errors.New("member not found")
	ErrCannotModifySelf  = errors.New("cannot change your own membership")
	ErrCannotModifyOwner = errors.New("the owner's membership cannot be changed")

	ErrAlreadyMember       = errors.New("already a member of an organization")
	ErrAlreadyInvited      = errors.New("email already has a pending invite to this organization")
	ErrInvitedElsewhere    = errors.New("email already has a pending invite to another organization")
	ErrInviteNotFound      = errors.New("no pending invite for this email")
	ErrPendingInviteExists = errors.New("a pending invite must be accepted or declined first")

	ErrConfirmationMismatch = errors.New("confirmation does not match the organization name")

	// ErrResolveUnavailable wraps store failures during session resolution.
	// It is retryable and never means "unassigned".
	ErrResolveUnavailable = errors.New("organization lookup unavailable")

	// ErrProvisionAfterDecline is returned when an invite was declined but the
	// replacement organization could not be created. Provision may be retried.
	ErrProvisionAfterDecline = errors.New("invite declined but organization creation failed")

	// ErrPartialDelete is returned when cascading deletion stopped part way.
	ErrPartialDelete = errors.New("organization partially deleted")
)
