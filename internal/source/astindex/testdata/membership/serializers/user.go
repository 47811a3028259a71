package serializers

// id:
//   type: integer
//   description: The id of the user record
// name:
//   type: string
//   description: The full name of the user
// email:
//   type: string
//   description: The email address the user logs in with
type UserSerializer struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	OldName string `json:"old_name"`
}
