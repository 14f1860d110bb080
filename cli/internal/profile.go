package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/preventix/preventix/internal/api"
)

func newProfileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View and update your profile",
	}

	cmd.AddCommand(newProfileShowCommand())
	cmd.AddCommand(newProfileUpdateCommand())

	return cmd
}

func newProfileShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)

			user, err := cliCtx.Client.Me(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch profile: %w", err)
			}

			fmt.Printf("Email: %s\n", user.Email)
			fmt.Printf("Name: %s\n", user.FullName)
			if user.Age != nil {
				fmt.Printf("Age: %d\n", *user.Age)
			}
			if user.Gender != nil {
				fmt.Printf("Gender: %s\n", *user.Gender)
			}
			fmt.Printf("Member since: %s\n", user.CreatedAt.Format("2006-01-02"))

			return nil
		},
	}
}

func newProfileUpdateCommand() *cobra.Command {
	var (
		fullName string
		age      int
		gender   string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update your profile",
		Example: `  # Change your display name
  preventix profile update --name "Jane Doe"

  # Update age and gender
  preventix profile update --age 46 --gender female`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)

			var req api.UpdateProfileRequest
			if cmd.Flags().Changed("name") {
				req.FullName = &fullName
			}
			if cmd.Flags().Changed("age") {
				req.Age = &age
			}
			if cmd.Flags().Changed("gender") {
				req.Gender = &gender
			}
			if req.FullName == nil && req.Age == nil && req.Gender == nil {
				return fmt.Errorf("nothing to update; pass --name, --age or --gender")
			}

			user, err := cliCtx.Client.UpdateProfile(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("failed to update profile: %w", err)
			}

			fmt.Printf("✓ Profile updated for %s\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&fullName, "name", "", "Full name")
	cmd.Flags().IntVar(&age, "age", 0, "Age in years")
	cmd.Flags().StringVar(&gender, "gender", "", "Gender")

	return cmd
}
