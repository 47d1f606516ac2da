package model

import "time"

type Location struct {
	ID        int64     `json:"id"`
	Country   string    `json:"country"`
	City      string    `json:"city"`
	Airport   string    `json:"airport,omitempty"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type LocationCreateRequest struct {
	Country string `json:"country" validate:"required,max=128"`
	City    string `json:"city" validate:"required,max=128"`
	Airport string `json:"airport" validate:"omitempty,max=16"`
	Details string `json:"details" validate:"max=1024"`
}

type Trip struct {
	ID             int64     `json:"id"`
	TripIdentifier string    `json:"trip_identifier"`
	TravelerID     int64     `json:"traveler_id"`
	FromID         int64     `json:"from_id"`
	ToID           int64     `json:"to_id"`
	From           *Location `json:"from,omitempty"`
	To             *Location `json:"to,omitempty"`
	FlyTime        time.Time `json:"fly_time"`
	ArriveTime     time.Time `json:"arrive_time"`
	TripType       string    `json:"trip_type,omitempty"`
	Transit        bool      `json:"transit"`
	Details        string    `json:"details,omitempty"`
	TicketImage    string    `json:"ticket_image,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type TripCreateRequest struct {
	TripIdentifier string    `json:"trip_identifier" validate:"required,max=64"`
	TravelerID     int64     `json:"traveler_id" validate:"required,gt=0"`
	FromID         int64     `json:"from_id" validate:"required,gt=0"`
	ToID           int64     `json:"to_id" validate:"required,gt=0,nefield=FromID"`
	FlyTime        time.Time `json:"fly_time" validate:"required"`
	ArriveTime     time.Time `json:"arrive_time" validate:"required,gtefield=FlyTime"`
	Capacity       float64   `json:"capacity" validate:"gte=0"`
	TripType       string    `json:"trip_type"`
	Transit        bool      `json:"transit"`
	Details        string    `json:"details" validate:"max=1024"`
	TicketImage    string    `json:"ticket_image"`
}

type ShipmentType struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Factor float64 `json:"factor"`
}

type Shipment struct {
	ID          int64     `json:"id"`
	DealID      *int64    `json:"deal_id,omitempty"`
	TypeID      *int64    `json:"type_id,omitempty"`
	FromID      int64     `json:"from_id"`
	ToID        int64     `json:"to_id"`
	From        *Location `json:"from,omitempty"`
	To          *Location `json:"to,omitempty"`
	Weight      float64   `json:"weight"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url,omitempty"`
	ImgURL      string    `json:"img_url,omitempty"`
	Cost        float64   `json:"cost"`
	Price       float64   `json:"price"`
	Details     string    `json:"details,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ShipmentInput struct {
	TypeID      *int64  `json:"type_id" validate:"omitempty,gt=0"`
	FromID      int64   `json:"from_id" validate:"required,gt=0"`
	ToID        int64   `json:"to_id" validate:"required,gt=0,nefield=FromID"`
	Weight      float64 `json:"weight" validate:"gt=0"`
	Description string  `json:"description" validate:"max=1024"`
	URL         string  `json:"url" validate:"omitempty,url"`
	ImgURL      string  `json:"img_url" validate:"omitempty,url"`
	Cost        float64 `json:"cost" validate:"gte=0"`
	Price       float64 `json:"price" validate:"gte=0"`
	Details     string  `json:"details" validate:"max=1024"`
}

type ShipmentBatchRequest struct {
	OwnerID      int64           `json:"owner_id" validate:"required,gt=0"`
	ExpectedDate time.Time       `json:"expected_date" validate:"required"`
	Shipments    []ShipmentInput `json:"shipments" validate:"required,min=1,dive"`
}

type UserApplication struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	PushToken string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type UserCreateRequest struct {
	Name      string `json:"name" validate:"required,max=128"`
	Phone     string `json:"phone" validate:"required,e164"`
	PushToken string `json:"push_token"`
}
