package command

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/jagoanbunda/bunda-cli/internal/cli/output"
	"github.com/jagoanbunda/bunda-cli/internal/core/domain"
)

// ProfileCommand shows and edits the signed-in profile.
func ProfileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Show or update your profile",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the profile",
				Action: whoami,
			},
			{
				Name:  "update",
				Usage: "Update profile fields",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Full name"},
					&cli.StringFlag{Name: "phone", Usage: "Phone number"},
					&cli.BoolFlag{Name: "push-notifications", Usage: "Receive push notifications"},
					&cli.BoolFlag{Name: "weekly-report", Usage: "Receive the weekly report"},
					&cli.PathFlag{Name: "avatar", Usage: "Upload an image `FILE` as avatar"},
				},
				Action: profileUpdate,
			},
		},
	}
}

// updateRequest builds the request from the flags that were given.
func updateRequest(c *cli.Context) domain.UpdateProfileRequest {
	var req domain.UpdateProfileRequest
	if c.IsSet("name") {
		v := strings.TrimSpace(c.String("name"))
		req.Name = &v
	}
	if c.IsSet("phone") {
		v := strings.TrimSpace(c.String("phone"))
		req.Phone = &v
	}
	if c.IsSet("push-notifications") {
		v := c.Bool("push-notifications")
		req.PushNotifications = &v
	}
	if c.IsSet("weekly-report") {
		v := c.Bool("weekly-report")
		req.WeeklyReport = &v
	}
	return req
}

func profileUpdate(c *cli.Context) error {
	req := updateRequest(c)
	avatar := c.Path("avatar")
	if req.IsEmpty() && avatar == "" {
		return fmt.Errorf("nothing to update, pass at least one flag")
	}
	if avatar != "" {
		if _, err := os.Stat(avatar); err != nil {
			return fmt.Errorf("avatar: %w", err)
		}
	}

	env, err := requireSession(c)
	if err != nil {
		return err
	}

	spin := output.NewSpinner(env.Err, "Saving profile").Start()
	if avatar != "" {
		err = env.Session.UpdateProfileWithAvatar(c.Context, req, avatar)
	} else {
		err = env.Session.UpdateProfile(c.Context, req)
	}
	spin.Stop()
	if err != nil {
		return err
	}
	return env.Print(output.NewUserView(env.Session.State().User, env.Config.API.URL))
}
