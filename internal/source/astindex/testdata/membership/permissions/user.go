package permissions

// Permissions implements the access checks for user services.
type Permissions struct{}

// The requesting user must be a member of the address that owns the listed
// records.
func (p Permissions) List() error { return nil }

// The requesting user must be a member of the address that owns the
// specified record.
func (p Permissions) Read() error { return nil }

// The requesting user must be an administrator of the address the new
// record is created in.
func (p Permissions) Create() error { return nil }

// The requesting user must be an administrator of the address that owns the
// specified record.
func (p Permissions) Update() error { return nil }

// The requesting user must be an administrator of the address that owns the
// specified record.
func (p Permissions) Delete() error { return nil }
