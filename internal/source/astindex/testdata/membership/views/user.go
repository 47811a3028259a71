// Services for managing the user records of an address.
package views

// UserCollection handles methods regarding user records that do not require
// an id to be specified.
type UserCollection struct{}

// summary: List users
// description: Retrieve a list of user records
// responses:
//   200:
//     description: A list of user records
//   400:
func (v UserCollection) Get() {}

// summary: Create a user
// description: Create a new user record in the requesting address
// responses:
//   201:
//     description: The user record was created successfully
//   400:
func (v UserCollection) Post() {}

// UserResource handles methods regarding user records that require an id to
// be specified.
type UserResource struct{}

// summary: Read a user
// description: Retrieve the details of a specified user record
// path_params:
//   pk:
//     type: integer
//     description: The id of the user record to read
// responses:
//   200:
//     description: The details of the specified user record
//   404:
func (v UserResource) Get() {}

// summary: Update a user
// description: Update the details of a specified user record
// path_params:
//   pk:
//     type: integer
//     description: The id of the user record to update
// responses:
//   200:
//     description: The user record was updated successfully
//   400:
//   404:
func (v UserResource) Put() {}

func (v UserResource) Patch() {}

// summary: Delete a user
// description: Remove a specified user record from the platform
// path_params:
//   pk:
//     type: integer
//     description: The id of the user record to delete
// responses:
//   204:
//   404:
func (v UserResource) Delete() {}
