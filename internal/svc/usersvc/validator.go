package usersvc

import (
	"github.com/mkrupp/homecase-users/internal/domain"
)

// Client-facing validation messages.
const (
	ReasonNameAndEmailRequired = "Name and email are required"
	ReasonNoData               = "No data provided"
	ReasonEmptyName            = "Name must not be empty"
	ReasonEmptyEmail           = "Email must not be empty"
)

// validateCreate checks that name and email are present, non-null and non-empty.
// Age is optional and may be null.
func validateCreate(req domain.CreateUserRequest) (domain.NewUser, error) {
	if !req.Name.Set || req.Name.Null || req.Name.Value == "" ||
		!req.Email.Set || req.Email.Null || req.Email.Value == "" {
		return domain.NewUser{}, domain.NewInvalidRequestError(ReasonNameAndEmailRequired)
	}

	age, _ := req.Age.Ptr()

	return domain.NewUser{
		Name:  req.Name.Value,
		Email: req.Email.Value,
		Age:   age,
	}, nil
}

// validatePatch rejects empty patches and patches that would blank a required field.
func validatePatch(patch domain.UserPatch) error {
	if patch.IsEmpty() {
		return domain.NewInvalidRequestError(ReasonNoData)
	}

	if patch.Name.Set && (patch.Name.Null || patch.Name.Value == "") {
		return domain.NewInvalidRequestError(ReasonEmptyName)
	}

	if patch.Email.Set && (patch.Email.Null || patch.Email.Value == "") {
		return domain.NewInvalidRequestError(ReasonEmptyEmail)
	}

	return nil
}

// mergedPatch turns a merged record back into a patch that sets every field.
func mergedPatch(u domain.User) domain.UserPatch {
	patch := domain.UserPatch{
		Name:  domain.Some(u.Name),
		Email: domain.Some(u.Email),
		Age:   domain.Null[int64](),
	}

	if u.Age != nil {
		patch.Age = domain.Some(*u.Age)
	}

	return patch
}
