package transport

type LoginRequest struct {
	Tagline  string `json:"tagline" validate:"required,max=200"`
	Username string `json:"username" validate:"required,max=200"`
	Password string `json:"password" validate:"required,max=200"`
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
	CompanyID   string `json:"companyId"`
	CompanyName string `json:"companyName"`
}
