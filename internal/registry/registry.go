// Package registry manages the participant roster: agents and users.
package registry

import (
	"errors"

	"github.com/zulandar/switchboard/internal/errs"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

// AgentCreate holds the fields for a new agent. Name is required; the rest
// are optional.
type AgentCreate struct {
	AgentName string
	IPAddress *string
	Port      *int
}

// AgentUpdate holds the mutable agent fields. Nil pointers leave the
// corresponding column untouched.
type AgentUpdate struct {
	AgentName *string
	IPAddress *string
	Port      *int
}

func validatePort(port *int) error {
	if port != nil && (*port < 1 || *port > 65535) {
		return errs.Validationf("registry: port %d out of range 1-65535", *port)
	}
	return nil
}

// CreateAgent registers a new agent and assigns it an id.
func CreateAgent(gdb *gorm.DB, in AgentCreate) (*models.Agent, error) {
	if in.AgentName == "" {
		return nil, errs.Validationf("registry: agent_name is required")
	}
	if err := validatePort(in.Port); err != nil {
		return nil, err
	}

	agent := models.Agent{
		AgentName: in.AgentName,
		IPAddress: in.IPAddress,
		Port:      in.Port,
	}
	if err := gdb.Create(&agent).Error; err != nil {
		return nil, errs.Store("registry: create agent", err)
	}
	return &agent, nil
}

// UpdateAgent applies the supplied fields to an existing agent.
func UpdateAgent(gdb *gorm.DB, id string, upd AgentUpdate) (*models.Agent, error) {
	if upd.AgentName != nil && *upd.AgentName == "" {
		return nil, errs.Validationf("registry: agent_name must not be empty")
	}
	if err := validatePort(upd.Port); err != nil {
		return nil, err
	}

	var agent models.Agent
	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&agent, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFoundf("registry: agent %s", id)
			}
			return errs.Store("registry: load agent", err)
		}

		updates := map[string]interface{}{}
		if upd.AgentName != nil {
			updates["agent_name"] = *upd.AgentName
		}
		if upd.IPAddress != nil {
			updates["ip_address"] = *upd.IPAddress
		}
		if upd.Port != nil {
			updates["port"] = *upd.Port
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&agent).Updates(updates).Error; err != nil {
			return errs.Store("registry: update agent", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

// GetAgent loads one agent by id.
func GetAgent(gdb *gorm.DB, id string) (*models.Agent, error) {
	var agent models.Agent
	if err := gdb.First(&agent, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("registry: agent %s", id)
		}
		return nil, errs.Store("registry: load agent", err)
	}
	return &agent, nil
}

// ListAgents returns all registered agents, newest first.
func ListAgents(gdb *gorm.DB) ([]models.Agent, error) {
	var agents []models.Agent
	if err := gdb.Order("created_at DESC").Find(&agents).Error; err != nil {
		return nil, errs.Store("registry: list agents", err)
	}
	return agents, nil
}

// AgentExists reports whether an agent row exists.
func AgentExists(gdb *gorm.DB, id string) (bool, error) {
	var count int64
	if err := gdb.Model(&models.Agent{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, errs.Store("registry: check agent", err)
	}
	return count > 0, nil
}

// CreateUser registers a user. Email must be unique.
func CreateUser(gdb *gorm.DB, name, email string) (*models.User, error) {
	if name == "" {
		return nil, errs.Validationf("registry: name is required")
	}
	if email == "" {
		return nil, errs.Validationf("registry: email is required")
	}

	user := models.User{Name: name, Email: email}
	if err := gdb.Create(&user).Error; err != nil {
		return nil, errs.Store("registry: create user", err)
	}
	return &user, nil
}

// GetUser loads one user by id.
func GetUser(gdb *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := gdb.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("registry: user %d", id)
		}
		return nil, errs.Store("registry: load user", err)
	}
	return &user, nil
}
