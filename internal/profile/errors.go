package profile

import "errors"

var (
	errEmptyOwners  = errors.New("profile: tenant must have at least one owner")
	errNoPrincipal  = errors.New("profile: account already has a principal user")
	errEmptyOwnerSet = errors.New("profile: profile must carry at least one owner")
)
