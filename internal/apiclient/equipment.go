package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/equiplend/frontend/internal/models"
)

type EquipmentFilter struct {
	AvailableOnly bool
	Search        string
	CategoryID    int64
}

func (f EquipmentFilter) query() string {
	q := url.Values{}
	if f.AvailableOnly {
		q.Set("available", "true")
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.CategoryID > 0 {
		q.Set("category", strconv.FormatInt(f.CategoryID, 10))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// EquipmentInput is the create/update body of the admin catalogue form.
type EquipmentInput struct {
	Name          string           `json:"name"`
	Category      int64            `json:"category"`
	Description   string           `json:"description"`
	Condition     models.Condition `json:"condition"`
	TotalQuantity int              `json:"total_quantity"`
}

func (c *Client) ListEquipment(ctx context.Context, token string, f EquipmentFilter) ([]models.EquipmentItem, error) {
	var out List[models.EquipmentItem]
	if err := c.do(ctx, http.MethodGet, "/api/equipment/", "/api/equipment/"+f.query(), token, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) GetEquipment(ctx context.Context, token string, id int64) (*models.EquipmentItem, error) {
	var out models.EquipmentItem
	path := fmt.Sprintf("/api/equipment/%d/", id)
	if err := c.do(ctx, http.MethodGet, "/api/equipment/{id}/", path, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateEquipment(ctx context.Context, token string, in EquipmentInput) (*models.EquipmentItem, error) {
	var out models.EquipmentItem
	if err := c.do(ctx, http.MethodPost, "/api/equipment/", "/api/equipment/", token, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateEquipment(ctx context.Context, token string, id int64, in EquipmentInput) (*models.EquipmentItem, error) {
	var out models.EquipmentItem
	path := fmt.Sprintf("/api/equipment/%d/", id)
	if err := c.do(ctx, http.MethodPut, "/api/equipment/{id}/", path, token, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteEquipment(ctx context.Context, token string, id int64) error {
	path := fmt.Sprintf("/api/equipment/%d/", id)
	return c.do(ctx, http.MethodDelete, "/api/equipment/{id}/", path, token, nil, nil)
}

func (c *Client) ListCategories(ctx context.Context, token string) ([]models.Category, error) {
	var out List[models.Category]
	if err := c.do(ctx, http.MethodGet, "/api/categories/", "/api/categories/", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}
