package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type ChallengeResponse struct {
	Nonce string `json:"nonce"`
}

type AuthResponse struct {
	Token   string `json:"token"`
	Address string `json:"address"`
}

type BalanceResponse struct {
	Address string `json:"address"`
	Token   string `json:"token"`
	Amount  int64  `json:"amount"`
}

type PreviewResponse struct {
	URI         string `json:"uri"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}
