package models

// Session is the authentication slice of the client state. IsAuthenticated
// is true exactly when Token is non-empty.
type Session struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	Token           string `json:"token,omitempty"`
	RefreshToken    string `json:"refreshToken,omitempty"`
	IsLoading       bool   `json:"isLoading"`
	Error           string `json:"error,omitempty"`
}

// AccountType distinguishes job seekers from employers
type AccountType string

const (
	AccountApplicant AccountType = "APPLICANT"
	AccountEmployer  AccountType = "EMPLOYER"
)

// User is the profile object returned by the auth endpoints
type User struct {
	ID          ID          `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	AccountType AccountType `json:"accountType,omitempty"`
	Avatar      string      `json:"avatar,omitempty"`
	GoogleID    string      `json:"googleId,omitempty"`
	CreatedAt   string      `json:"createdAt,omitempty"`
	UpdatedAt   string      `json:"updatedAt,omitempty"`
}

// UserProfile is the user slice of the client state. Its lifetime is
// independent from Session so the two can be rehydrated in any order.
type UserProfile struct {
	Profile         *User `json:"profile"`
	IsProfileLoaded bool  `json:"isProfileLoaded"`
}

// Snapshot is the combined persisted state written to durable storage
type Snapshot struct {
	Auth Session     `json:"auth"`
	User UserProfile `json:"user"`
}

// LoginCredentials is the payload for POST /auth/login
type LoginCredentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterCredentials is the payload for POST /users/register
type RegisterCredentials struct {
	Name            string      `json:"name" validate:"required"`
	Email           string      `json:"email" validate:"required,email"`
	Password        string      `json:"password" validate:"required,strongpassword"`
	ConfirmPassword string      `json:"confirmpassword" validate:"required,eqfield=Password"`
	AccountType     AccountType `json:"accountType" validate:"required,oneof=APPLICANT EMPLOYER"`
}

// AuthResponse covers login, refresh and google sign-in bodies
type AuthResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         *User  `json:"user,omitempty"`
	Message      string `json:"message,omitempty"`
}

// ValidateResponse is the body of POST /auth/validate
type ValidateResponse struct {
	Valid bool  `json:"valid"`
	User  *User `json:"user,omitempty"`
}

// Credential is an opaque token issued by an external identity provider
type Credential string

// Profile is the extended talent profile served by /profiles
type Profile struct {
	ID         ID       `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email,omitempty"`
	Title      string   `json:"title,omitempty"`
	Location   string   `json:"location,omitempty"`
	Experience string   `json:"experience,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	About      string   `json:"about,omitempty"`
	Skills     []string `json:"skills,omitempty"`
	Avatar     string   `json:"avatar,omitempty"`
	Banner     string   `json:"banner,omitempty"`
}

// Notification is an unread notification for a user
type Notification struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"userId"`
	Message   string `json:"message"`
	Action    string `json:"action,omitempty"`
	Route     string `json:"route,omitempty"`
	Status    string `json:"status,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}
