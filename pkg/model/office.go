package model

import "time"

type OfficeApprovalStatus string

const (
	OfficeApprovalPending  OfficeApprovalStatus = "pending"
	OfficeApprovalApproved OfficeApprovalStatus = "approved"
	OfficeApprovalRejected OfficeApprovalStatus = "rejected"
)

// Office is the directory entry the reservation core reads. Listing, search
// and geo ordering live in the offices service; this service only needs the
// fields that gate bookability and drive pricing.
type Office struct {
	ID              string               `json:"id,omitempty" bson:"_id,omitempty"`
	OwnerID         string               `json:"owner_id" bson:"owner_id"`
	Title           string               `json:"title" bson:"title"`
	PricePerDay     int64                `json:"price_per_day" bson:"price_per_day"`
	MonthlyDiscount int                  `json:"monthly_discount" bson:"monthly_discount"`
	ApprovalStatus  OfficeApprovalStatus `json:"approval_status" bson:"approval_status"`
	Hidden          bool                 `json:"hidden" bson:"hidden"`
	CreatedAt       time.Time            `json:"created_at" bson:"created_at"`
}

// BookableBy reports whether userID may reserve this office: the office must
// be approved, visible, and not the requester's own listing.
func (o *Office) BookableBy(userID string) bool {
	return o.ApprovalStatus == OfficeApprovalApproved &&
		!o.Hidden &&
		o.OwnerID != userID
}
