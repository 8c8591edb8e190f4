package domain

// CreateUserRequest is the payload of POST /users.
type CreateUserRequest struct {
	Name  Optional[string] `json:"name"`
	Email Optional[string] `json:"email"`
	Age   Optional[int64]  `json:"age"`
}

// UserPatch is the payload of PUT /users/{id}. Absent fields keep their stored value.
type UserPatch struct {
	Name  Optional[string] `json:"name"`
	Email Optional[string] `json:"email"`
	Age   Optional[int64]  `json:"age"`
}

// IsEmpty reports whether no recognised field was present.
func (p UserPatch) IsEmpty() bool {
	return !p.Name.Set && !p.Email.Set && !p.Age.Set
}

// Apply returns u with every present field of p overwritten. ID is never changed.
func (p UserPatch) Apply(u User) User {
	if p.Name.Set {
		u.Name = p.Name.Value
	}

	if p.Email.Set {
		u.Email = p.Email.Value
	}

	if age, ok := p.Age.Ptr(); ok {
		u.Age = age
	}

	return u
}
