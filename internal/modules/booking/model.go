// README: Booking payload, stored booking record and status definitions.
package booking

import (
	"strings"
	"time"
)

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleDriver   Role = "DRIVER"
	RoleAdmin    Role = "ADMIN"
)

// ParseRole maps a claim value to a Role. Unknown or empty values become
// RoleCustomer.
func ParseRole(s string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleDriver:
		return RoleDriver
	case RoleAdmin:
		return RoleAdmin
	}
	return RoleCustomer
}

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusOngoing   Status = "ONGOING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// AllowedTransitions is the booking lifecycle. COMPLETED and CANCELLED are
// terminal.
var AllowedTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusOngoing, StatusCancelled},
	StatusOngoing:   {StatusCompleted},
	StatusCompleted: {},
	StatusCancelled: {},
}

func (s Status) Valid() bool {
	_, ok := AllowedTransitions[s]
	return ok
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// User is the authenticated caller a booking is made for.
type User struct {
	ID   int64
	Role Role
}

// Payload is the submission sent to the booking backend. Times are ISO-8601
// strings in UTC.
type Payload struct {
	Role             Role    `json:"role"`
	UserID           int64   `json:"userId"`
	FromAddress      string  `json:"fromAddress"`
	FromLat          float64 `json:"fromLat"`
	FromLng          float64 `json:"fromLng"`
	ToAddress        string  `json:"toAddress"`
	ToLat            float64 `json:"toLat"`
	ToLng            float64 `json:"toLng"`
	RoutePolyline    *string `json:"routePolyline"`
	DistanceKm       float64 `json:"distanceKm"`
	EstimatedPrice   float64 `json:"estimatedPrice"`
	PickupAt         string  `json:"pickupAt"`
	DropoffAt        string  `json:"dropoffAt"`
	InitialVehicleID *int    `json:"initialVehicleId"`
}

// Booking is a stored booking. It echoes the payload it was created from.
type Booking struct {
	ID             int64     `json:"id"`
	RefCode        string    `json:"refCode"`
	Status         Status    `json:"status"`
	StatusVersion  int       `json:"-"`
	Role           Role      `json:"role"`
	UserID         int64     `json:"userId"`
	FromAddress    string    `json:"fromAddress"`
	FromLat        float64   `json:"fromLat"`
	FromLng        float64   `json:"fromLng"`
	ToAddress      string    `json:"toAddress"`
	ToLat          float64   `json:"toLat"`
	ToLng          float64   `json:"toLng"`
	RoutePolyline  *string   `json:"routePolyline"`
	DistanceKm     float64   `json:"distanceKm"`
	EstimatedPrice float64   `json:"estimatedPrice"`
	FinalPrice     float64   `json:"finalPrice"`
	PickupAt       time.Time `json:"pickupAt"`
	DropoffAt      time.Time `json:"dropoffAt"`
	VehicleID      *int      `json:"vehicleId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ListResult is one page of a user's bookings.
type ListResult struct {
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	Total      int       `json:"total"`
	TotalPages int       `json:"totalPages"`
	Data       []Booking `json:"data"`
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// normalizePage applies list defaults: page 1, pageSize 10, capped at 100.
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

func totalPages(total, pageSize int) int {
	if total == 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
