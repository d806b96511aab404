package server

import "github.com/sig-0/bnarates/storage/types"

type RatesResponse struct {
	Results []*types.RateRecord `json:"results"`
	Total   int                 `json:"total"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
