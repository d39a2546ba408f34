package models

type Seller struct {
	ID      int     `json:"id"`
	Name    string  `json:"nombre"`
	Network *string `json:"red_social"`
	Handle  string  `json:"usuario"`
}

type RegisterSellerRequest struct {
	Name    string `json:"nombre" validate:"required,max=100"`
	Network string `json:"red_social" validate:"required,max=100"`
	Handle  string `json:"usuario" validate:"required,max=100"`
}
