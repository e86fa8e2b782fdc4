package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusPending  Status = "pending"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusPending:
		return true
	}
	return false
}

type ReferralSource string

const (
	ReferralSourceWebsite       ReferralSource = "website"
	ReferralSourceSocialMedia   ReferralSource = "social-media"
	ReferralSourceReferral      ReferralSource = "referral"
	ReferralSourceAdvertisement ReferralSource = "advertisement"
	ReferralSourceOther         ReferralSource = "other"
)

func (s ReferralSource) Valid() bool {
	switch s {
	case ReferralSourceWebsite, ReferralSourceSocialMedia, ReferralSourceReferral,
		ReferralSourceAdvertisement, ReferralSourceOther:
		return true
	}
	return false
}

type LoyaltyLevel string

const (
	LoyaltyLevelBronze   LoyaltyLevel = "Bronze"
	LoyaltyLevelSilver   LoyaltyLevel = "Silver"
	LoyaltyLevelGold     LoyaltyLevel = "Gold"
	LoyaltyLevelPlatinum LoyaltyLevel = "Platinum"
)

type LoyaltyStatus string

const (
	LoyaltyStatusBronze   LoyaltyStatus = "bronze"
	LoyaltyStatusSilver   LoyaltyStatus = "silver"
	LoyaltyStatusGold     LoyaltyStatus = "gold"
	LoyaltyStatusPlatinum LoyaltyStatus = "platinum"
)

func (s LoyaltyStatus) Valid() bool {
	switch s {
	case LoyaltyStatusBronze, LoyaltyStatusSilver, LoyaltyStatusGold, LoyaltyStatusPlatinum:
		return true
	}
	return false
}

const (
	SilverThreshold   = 2000
	GoldThreshold     = 5000
	PlatinumThreshold = 10000

	ReferralBonusPoints = 100
	RegistrationPrefix  = "CUST"
	DefaultCountry      = "USA"
)

// DeriveLoyalty maps lifetime spend to a tier. Lower bounds are inclusive.
func DeriveLoyalty(totalSpent float64) (LoyaltyLevel, LoyaltyStatus) {
	switch {
	case totalSpent >= PlatinumThreshold:
		return LoyaltyLevelPlatinum, LoyaltyStatusPlatinum
	case totalSpent >= GoldThreshold:
		return LoyaltyLevelGold, LoyaltyStatusGold
	case totalSpent >= SilverThreshold:
		return LoyaltyLevelSilver, LoyaltyStatusSilver
	default:
		return LoyaltyLevelBronze, LoyaltyStatusBronze
	}
}

// ParseRegistrationNumber returns the numeric part of a CUST###### number.
func ParseRegistrationNumber(value string) (int64, error) {
	digits, ok := strings.CutPrefix(strings.TrimSpace(value), RegistrationPrefix)
	if !ok || digits == "" {
		return 0, fmt.Errorf("registration number %q has no %s prefix", value, RegistrationPrefix)
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("registration number %q is not numeric", value)
	}
	return n, nil
}

type Address struct {
	Street  string `gorm:"column:street" json:"street"`
	City    string `gorm:"column:city" json:"city"`
	State   string `gorm:"column:state" json:"state"`
	ZipCode string `gorm:"column:zip_code" json:"zipCode"`
	Country string `gorm:"column:country;default:USA" json:"country"`
}

var ServiceTypes = []string{
	"Lawn Care",
	"Garden Design",
	"Tree Services",
	"Irrigation",
	"Landscaping",
	"Pest Control",
	"Seasonal Cleanup",
	"Hardscaping",
}

var CommunicationMethods = []string{"email", "phone", "sms", "mail"}

type Preferences struct {
	ServiceTypes        []string `json:"serviceTypes"`
	CommunicationMethod string   `json:"communicationMethod"`
	SpecialInstructions string   `json:"specialInstructions,omitempty"`
}

// ReferrerSummary is the display form of a referenced customer.
type ReferrerSummary struct {
	ID                 snowflake.ID `json:"id"`
	Name               string       `json:"name"`
	Email              string       `json:"email,omitempty"`
	RegistrationNumber string       `json:"registrationNumber"`
}

type Customer struct {
	ID                 snowflake.ID                      `gorm:"primaryKey" json:"id"`
	RegistrationNumber string                            `gorm:"size:32;not null;uniqueIndex" json:"registrationNumber"`
	Name               string                            `gorm:"not null" json:"name"`
	Email              string                            `gorm:"size:320;not null;uniqueIndex" json:"email"`
	Phone              string                            `gorm:"size:32;not null" json:"phone"`
	DateOfBirth        *time.Time                        `json:"dateOfBirth,omitempty"`
	Address            Address                           `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	Preferences        datatypes.JSONType[Preferences]   `json:"preferences"`
	Status             Status                            `gorm:"size:16;not null;default:active;index" json:"status"`
	ReferredByID       *snowflake.ID                     `gorm:"column:referred_by;index" json:"referredById,omitempty"`
	ReferredBy         *ReferrerSummary                  `gorm:"-" json:"referredBy"`
	ReferralSource     ReferralSource                    `gorm:"size:32;not null;default:website" json:"referralSource"`
	TotalReferrals     int                               `gorm:"not null;default:0" json:"totalReferrals"`
	LoyaltyPoints      int                               `gorm:"not null;default:0" json:"loyaltyPoints"`
	LoyaltyLevel       LoyaltyLevel                      `gorm:"size:16;not null" json:"loyaltyLevel"`
	LoyaltyStatus      LoyaltyStatus                     `gorm:"size:16;not null;index" json:"loyaltyStatus"`
	TotalSpent         float64                           `gorm:"not null;default:0" json:"totalSpent"`
	ServiceCount       int                               `gorm:"not null;default:0" json:"serviceCount"`
	TotalServicesCount int                               `gorm:"not null;default:0" json:"totalServicesCount"`
	LastServiceDate    *time.Time                        `json:"lastServiceDate,omitempty"`
	RegistrationDate   time.Time                         `gorm:"not null;index" json:"registrationDate"`
	CreatedAt          time.Time                         `gorm:"not null;index" json:"createdAt"`
	UpdatedAt          time.Time                         `gorm:"not null" json:"updatedAt"`
}

func (Customer) TableName() string { return "customers" }

// Normalize recomputes the derived fields. Caller-supplied values for them
// are always overwritten.
func (c *Customer) Normalize() {
	c.LoyaltyLevel, c.LoyaltyStatus = DeriveLoyalty(c.TotalSpent)
	c.TotalServicesCount = c.ServiceCount
}

func (c *Customer) BeforeSave(*gorm.DB) error {
	c.Normalize()
	return nil
}

// FullAddress formats the address as "street, city, state zip".
func (c Customer) FullAddress() string {
	return fmt.Sprintf("%s, %s, %s %s", c.Address.Street, c.Address.City, c.Address.State, c.Address.ZipCode)
}

// Age returns whole years since DateOfBirth, or nil when unknown.
func (c Customer) Age(now time.Time) *int {
	if c.DateOfBirth == nil {
		return nil
	}
	dob := c.DateOfBirth.UTC()
	now = now.UTC()
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return &years
}

func (c Customer) Summary() ReferrerSummary {
	return ReferrerSummary{
		ID:                 c.ID,
		Name:               c.Name,
		Email:              c.Email,
		RegistrationNumber: c.RegistrationNumber,
	}
}

// ReferralEvent records that a referrer was credited for a new customer.
// ReferredCustomerID is unique so a credit is applied at most once.
type ReferralEvent struct {
	ID                 string       `gorm:"primaryKey;size:26"`
	ReferrerID         snowflake.ID `gorm:"not null;index"`
	ReferredCustomerID snowflake.ID `gorm:"not null;uniqueIndex"`
	Points             int          `gorm:"not null"`
	CreatedAt          time.Time    `gorm:"not null"`
}

func (ReferralEvent) TableName() string { return "referral_events" }
