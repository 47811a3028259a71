package controllers

// Meta declares the metadata the documentation generator reads statically.
type Meta struct {
	ValidationOrder []string
	SearchFields    map[string][]string
	AllowedOrdering []string
}

// UserListController declares the filtering and ordering rules for user
// lists.
type UserListController struct{}

func (c UserListController) Meta() Meta {
	return Meta{
		SearchFields: map[string][]string{
			"name":  {"icontains"},
			"email": {},
		},
		AllowedOrdering: []string{"name", "id"},
	}
}

// UserCreateController validates data used to create user records.
type UserCreateController struct{}

func (c UserCreateController) Meta() Meta {
	return Meta{
		ValidationOrder: []string{"name", "email"},
	}
}

// type: string
// description: The full name of the user
func (c UserCreateController) ValidateName(name string) error { return nil }

// type: string
// description: The email address the user logs in with
func (c UserCreateController) ValidateEmail(email string) error { return nil }

// UserUpdateController validates data used to update user records.
type UserUpdateController struct{}

func (c UserUpdateController) Meta() Meta {
	return Meta{
		ValidationOrder: []string{"name", "email"},
	}
}

// type: string
// description: The full name of the user
func (c UserUpdateController) ValidateName(name string) error { return nil }

// type: string
// description: The email address the user logs in with
// required: false
func (c UserUpdateController) ValidateEmail(email string) error { return nil }
