package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Competition struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title        string             `bson:"title" json:"title"`
	Description  string             `bson:"description" json:"description"`
	Fee          string             `bson:"fee" json:"fee"` // rupees, e.g. "199.00"
	Deadline     time.Time          `bson:"deadline" json:"deadline"`
	Participants []string           `bson:"participants" json:"-"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailure PaymentStatus = "failure"
)

// Payment records one PayU transaction for a competition entry.
type Payment struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TxnID         string             `bson:"txnid" json:"txnid"`
	Email         string             `bson:"email" json:"email"`
	CompetitionID primitive.ObjectID `bson:"competitionId" json:"competitionId"`
	Amount        string             `bson:"amount" json:"amount"`
	Status        PaymentStatus      `bson:"status" json:"status"`
	GatewayID     string             `bson:"gatewayId,omitempty" json:"gatewayId,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}
