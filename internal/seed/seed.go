package seed

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	appModels "github.com/deniz/learnstack/internal/app/models"
	appRepos "github.com/deniz/learnstack/internal/app/repositories"
	"github.com/deniz/learnstack/internal/pkg/auth"
)

const defaultAdminEmail = "admin@learnstack.app"

// CreateDefaultData creates the default admin account if it doesn't exist.
// The password must be changed after first login; it is only meant to make a
// fresh installation reachable.
func CreateDefaultData(ctx context.Context, dbPool *pgxpool.Pool, lgr zerolog.Logger) error {
	userRepo := appRepos.NewUserRepository(dbPool)

	var finalErr error

	exists, err := userRepo.EmailExists(ctx, defaultAdminEmail)
	if err != nil {
		lgr.Error().Err(err).Msg("Error checking if default admin exists")
		finalErr = errors.Join(finalErr, err)
	} else if !exists {
		lgr.Info().Str("email", defaultAdminEmail).Msg("Creating default admin user...")

		hashedPassword, err := auth.HashPassword("Admin123!")
		if err != nil {
			lgr.Error().Err(err).Msg("Error hashing default admin password")
			finalErr = errors.Join(finalErr, err)
		} else {
			admin := &appModels.User{
				Email:     defaultAdminEmail,
				Password:  hashedPassword,
				FirstName: "System",
				LastName:  "Admin",
				RoleType:  appModels.RoleAdmin,
				IsActive:  true,
			}
			if _, err := userRepo.CreateUser(ctx, admin); err != nil {
				lgr.Error().Err(err).Msg("Error creating default admin user")
				finalErr = errors.Join(finalErr, err)
			} else {
				lgr.Info().Msg("Default admin user created")
			}
		}
	}

	return finalErr
}
