package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_MEMBER         = "member"
	ROLE_BLOCK_ADMIN    = "block_admin"
	ROLE_DISTRICT_ADMIN = "district_admin"
	ROLE_STATE_ADMIN    = "state_admin"
	ROLE_ADMIN          = "admin"

	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"

	PAYMENT_PENDING   = "pending"
	PAYMENT_COMPLETED = "completed"
)

type Member struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email         string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Password      string         `gorm:"type:text" json:"-" validate:"required,min=6"`
	Phone         string         `gorm:"type:varchar(20);default:null" json:"phone" validate:"omitempty,min=8,max=20"`
	Organization  string         `gorm:"type:varchar(200);default:null" json:"organization" validate:"max=200"`
	Occupation    string         `gorm:"type:varchar(100);default:null" json:"occupation" validate:"max=100"`
	Address       string         `gorm:"type:text;default:null" json:"address" validate:"max=500"`
	State         string         `gorm:"type:varchar(100);index" json:"state" validate:"max=100"`
	District      string         `gorm:"type:varchar(100);index" json:"district" validate:"max=100"`
	Block         string         `gorm:"type:varchar(100);index" json:"block" validate:"max=100"`
	Role          string         `gorm:"type:varchar(50);default:'member'" json:"role" validate:"oneof=member block_admin district_admin state_admin admin"`
	Status        string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	PaymentStatus string         `gorm:"type:varchar(20);default:'pending'" json:"payment_status" validate:"oneof=pending completed"`
	LastLoginAt   *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (m *Member) Validate() error {
	v := validator.New()

	return v.Struct(m)
}

func CreateMember(name string, email string, password string) (*Member, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	m := &Member{
		Name:          name,
		Email:         email,
		Password:      pw,
		Role:          ROLE_MEMBER,
		Status:        STATUS_ACTIVE,
		PaymentStatus: PAYMENT_PENDING,
	}

	err = m.Validate()
	if err != nil {
		return nil, err
	}

	return m, nil
}

// FindMemberByID loads a member by primary key.
func FindMemberByID(db *gorm.DB, id uint) (*Member, error) {
	var m Member
	if err := db.First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// IsActive reports whether the member status is active
func (m *Member) IsActive() bool {
	return m.Status == STATUS_ACTIVE
}

// CheckPassword verifies if the provided password matches the member's stored password
func (m *Member) CheckPassword(password string) bool {
	return CheckPasswordHash(password, m.Password)
}

// SetPassword hashes and sets a new password for the member
func (m *Member) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	m.Password = hashedPassword
	return nil
}

// HasPaid reports whether the membership fee has been settled
func (m *Member) HasPaid() bool {
	return m.PaymentStatus == PAYMENT_COMPLETED
}

// IsApprover reports whether the member may decide applications for the given stage
func (m *Member) IsApprover(stage string) bool {
	if m.Role == ROLE_ADMIN {
		return true
	}
	switch stage {
	case StageBlock:
		return m.Role == ROLE_BLOCK_ADMIN
	case StageDistrict:
		return m.Role == ROLE_DISTRICT_ADMIN
	case StageState:
		return m.Role == ROLE_STATE_ADMIN
	}
	return false
}

// profileRequiredFields lists the fields that count towards profile completion.
// Submission requires all of them to be filled (100%).
func (m *Member) profileRequiredFields() []string {
	return []string{
		m.Name,
		m.Email,
		m.Phone,
		m.Occupation,
		m.Address,
		m.State,
		m.District,
		m.Block,
	}
}

// ProfileCompletion returns the percentage (0-100) of required profile fields
// that are filled in.
func (m *Member) ProfileCompletion() int {
	fields := m.profileRequiredFields()
	filled := 0
	for _, f := range fields {
		if f != "" {
			filled++
		}
	}
	return int(float64(filled)/float64(len(fields))*100 + 0.5)
}

// IsProfileComplete reports whether every required profile field is filled
func (m *Member) IsProfileComplete() bool {
	return m.ProfileCompletion() == 100
}
