package devserver

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type usersFile struct {
	Users []struct {
		Username string         `yaml:"username"`
		Password string         `yaml:"password"`
		Roles    []string       `yaml:"roles"`
		Profile  map[string]any `yaml:"profile"`
	} `yaml:"users"`
}

// LoadUsers reads accounts from a YAML file of the form
//
//	users:
//	  - username: alice
//	    password: secret
//	    roles: [developer]
func LoadUsers(path string) ([]User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	var f usersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse users file %s: %w", path, err)
	}

	users := make([]User, 0, len(f.Users))
	for i, u := range f.Users {
		if u.Username == "" || u.Password == "" {
			return nil, fmt.Errorf("users file %s: entry %d needs a username and password", path, i)
		}
		users = append(users, User{
			Username: u.Username,
			Password: u.Password,
			Roles:    u.Roles,
			Profile:  u.Profile,
		})
	}

	return users, nil
}
