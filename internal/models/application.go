package models

import "fmt"

// Application is a registered deployable service which can be assigned to
// tenants. Applications exist independently of tenants.
type Application struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Vendor      string `json:"vendor"`
	Homepage    string `json:"homepage"`
}

func (a *Application) Validate() error {
	if err := ValidateIdentifier(a.Name); err != nil {
		return fmt.Errorf("application name: %w", err)
	}
	return nil
}
