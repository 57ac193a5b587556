package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with one account per role for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		if clearData {
			for _, table := range []string{"advance_expense_items", "advance_approvals", "advances", "users"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, err := bcrypt.GenerateFromPassword([]byte(password), cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		users := []struct {
			Email      string
			EmployeeID string
			FirstName  string
			LastName   string
			Department string
			Position   string
			Role       string
		}{
			{"fadhil@mail.com", "EMP001", "Fadhil", "Rahman", "Engineering", "Backend Engineer", "staff"},
			{"sari@mail.com", "EMP002", "Sari", "Wulandari", "Engineering", "Engineering Manager", "manager"},
			{"budi@mail.com", "EMP003", "Budi", "Santoso", "Finance", "Finance Officer", "finance"},
			{"padil@mail.com", "EMP004", "Padil", "Admin", "Operations", "System Administrator", "admin"},
		}

		for _, u := range users {
			var exists int
			if err := db.Raw("SELECT 1 FROM users WHERE email = ?", u.Email).Row().Scan(&exists); err == nil {
				fmt.Printf("%s user already exists; skipping\n", u.Role)
				continue
			}

			if err := db.Exec(
				"INSERT INTO users (email, employee_id, first_name, last_name, department, position, role, is_active, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, true, ?, now(), now())",
				u.Email, u.EmployeeID, u.FirstName, u.LastName, u.Department, u.Position, u.Role, string(hash),
			).Error; err != nil {
				log.Fatalf("failed to insert %s user: %v", u.Role, err)
			}
			fmt.Printf("Seeded %s user: %s\n", u.Role, u.Email)
		}

		fmt.Println("Users seeded successfully; every account uses the password:", password)
	},
}
