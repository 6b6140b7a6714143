package dto

import (
	"github.com/press141-netizen/reflex/model"
)

type BoardResponse struct {
	BoardID          string                 `json:"boardId"`
	References       []model.Reference      `json:"references"`
	CustomCategories map[string]interface{} `json:"customCategories"`
	CreatedAt        string                 `json:"createdAt,omitempty"`
}

type AddReferenceRequest struct {
	Reference model.Reference `json:"reference" validate:"required"`
}

func (r *AddReferenceRequest) Validate() error {
	return GetValidator().Struct(r)
}

type UpdateReferenceRequest struct {
	Reference model.Reference `json:"reference" validate:"required"`
}

func (r *UpdateReferenceRequest) Validate() error {
	return GetValidator().Struct(r)
}

type RemoveReferenceRequest struct {
	ReferenceID int64 `json:"referenceId" validate:"required"`
}

func (r *RemoveReferenceRequest) Validate() error {
	return GetValidator().Struct(r)
}

type ReferenceResponse struct {
	Success   bool            `json:"success"`
	Reference model.Reference `json:"reference,omitempty"`
}

type SetCategoriesRequest struct {
	CustomCategories map[string]interface{} `json:"customCategories" validate:"required"`
}

func (r *SetCategoriesRequest) Validate() error {
	return GetValidator().Struct(r)
}

type SuccessResponse struct {
	Success bool `json:"success"`
}
