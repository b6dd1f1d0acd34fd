package catalog

import (
	"time"

	"github.com/angelmondragon/pharmalink-backend/pkg/db/models"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
)

// ProductDTO is the wire shape of a catalog entry.
type ProductDTO struct {
	ProductID       string     `json:"product_id"`
	WholesalerID    string     `json:"wholesaler_id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Price           string     `json:"price"`
	Quantity        int        `json:"quantity"`
	ExpireDate      string     `json:"expire_date"`
	LastPriceUpdate *time.Time `json:"last_price_update,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func NewProductDTO(p models.Product) ProductDTO {
	return ProductDTO{
		ProductID:       p.ID,
		WholesalerID:    p.WholesalerID,
		Name:            p.Name,
		Description:     p.Description,
		Price:           p.Price.StringFixed(2),
		Quantity:        p.Quantity,
		ExpireDate:      p.ExpireDate.Format(time.DateOnly),
		LastPriceUpdate: p.LastPriceUpdate,
		CreatedAt:       p.CreatedAt,
	}
}

// OfferDTO is one row of a price comparison.
type OfferDTO struct {
	ProductID         string              `json:"product_id"`
	ProductName       string              `json:"product_name"`
	Description       string              `json:"description"`
	Price             string              `json:"price"`
	Quantity          int                 `json:"quantity"`
	ExpireDate        string              `json:"expire_date"`
	WholesalerID      string              `json:"wholesaler_id"`
	WholesalerName    string              `json:"wholesaler_name"`
	WholesalerAddress string              `json:"wholesaler_address"`
	WholesalerStatus  enums.AccountStatus `json:"wholesaler_status"`
}

func newOfferDTO(o Offer) OfferDTO {
	return OfferDTO{
		ProductID:         o.ProductID,
		ProductName:       o.ProductName,
		Description:       o.Description,
		Price:             o.Price.StringFixed(2),
		Quantity:          o.Quantity,
		ExpireDate:        o.ExpireDate.Format(time.DateOnly),
		WholesalerID:      o.WholesalerID,
		WholesalerName:    o.WholesalerName,
		WholesalerAddress: o.WholesalerAddress,
		WholesalerStatus:  o.WholesalerStatus,
	}
}
