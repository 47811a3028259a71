// The Membership application manages users and the addresses they belong
// to, providing the CloudCIX platform with its account structure.
package membership

// Version of the Membership application.
const Version = "1.2.3"

type urlPattern struct {
	Pattern string
	View    string
}

// URLPatterns routes each service URL to the view that implements it.
var URLPatterns = []urlPattern{
	{Pattern: "user/", View: "UserCollection"},
	{Pattern: "user/<int:pk>/", View: "UserResource"},
}
