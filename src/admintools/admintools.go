package admintools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opsportal/portal/src/auth"
	"github.com/opsportal/portal/src/chatdata"
	"github.com/opsportal/portal/src/config"
	"github.com/opsportal/portal/src/db"
	"github.com/opsportal/portal/src/models"
	"github.com/opsportal/portal/src/website"
	"github.com/spf13/cobra"
)

var actingUser string

func init() {
	adminCommand := &cobra.Command{
		Use:   "admin",
		Short: "Miscellaneous admin commands",
	}
	adminCommand.PersistentFlags().StringVar(&actingUser, "as", "", "Profile id of the admin performing the change")
	website.WebsiteCommand.AddCommand(adminCommand)

	createChannelCommand := &cobra.Command{
		Use:   "createchannel [slug] [name] [description...]",
		Short: "Create a new channel",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 {
				fmt.Printf("You must provide a slug and a name.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			admin := mustFetchAdmin(ctx, conn)
			channel, err := chatdata.CreateChannel(ctx, conn, *admin, chatdata.CreateChannelInput{
				Slug:        args[0],
				Name:        args[1],
				Description: strings.Join(args[2:], " "),
			})
			exitOnError(err)

			fmt.Printf("Created channel '%s' (%s)\n", channel.Slug, channel.ID)
		},
	}
	adminCommand.AddCommand(createChannelCommand)

	archiveChannelCommand := &cobra.Command{
		Use:   "archivechannel [slug] [true/false]",
		Short: "Archive or unarchive a channel",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 {
				fmt.Printf("You must provide a channel slug.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			archived := true
			if len(args) > 1 {
				var err error
				archived, err = strconv.ParseBool(args[1])
				if err != nil {
					fmt.Printf("'%s' is not true or false.\n\n", args[1])
					os.Exit(1)
				}
			}

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			admin := mustFetchAdmin(ctx, conn)
			channel, err := chatdata.FetchChannelBySlug(ctx, conn, args[0])
			exitOnError(err)
			channel, err = chatdata.UpdateChannel(ctx, conn, *admin, channel.ID, chatdata.UpdateChannelInput{
				Archived: &archived,
			})
			exitOnError(err)

			if channel.IsArchived {
				fmt.Printf("Channel '%s' is now archived.\n", channel.Slug)
			} else {
				fmt.Printf("Channel '%s' is active again.\n", channel.Slug)
			}
		},
	}
	adminCommand.AddCommand(archiveChannelCommand)

	deleteTagCommand := &cobra.Command{
		Use:   "deletetag [tag id]",
		Short: "Delete a tag and remove it from every thread",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 {
				fmt.Printf("You must provide a tag id.\n\n")
				cmd.Usage()
				os.Exit(1)
			}
			tagID, err := uuid.Parse(args[0])
			if err != nil {
				fmt.Printf("'%s' is not a valid tag id.\n", args[0])
				os.Exit(1)
			}

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			admin := mustFetchAdmin(ctx, conn)
			tag, err := chatdata.FetchTag(ctx, conn, tagID)
			exitOnError(err)
			threads, err := chatdata.ThreadIDsForTag(ctx, conn, tagID)
			exitOnError(err)
			exitOnError(chatdata.DeleteTag(ctx, conn, *admin, tagID))

			fmt.Printf("Deleted tag '%s' from %d threads.\n", tag.Name, len(threads))
		},
	}
	adminCommand.AddCommand(deleteTagCommand)

	var tokenTTL time.Duration
	mintTokenCommand := &cobra.Command{
		Use:   "minttoken [profile id]",
		Short: "Sign an access token for local testing",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 {
				fmt.Printf("You must provide a profile id.\n\n")
				cmd.Usage()
				os.Exit(1)
			}
			userID, err := uuid.Parse(args[0])
			if err != nil {
				fmt.Printf("'%s' is not a valid profile id.\n", args[0])
				os.Exit(1)
			}
			if config.Config.Auth.JWTSecret == "" {
				fmt.Printf("No JWT secret is configured.\n")
				os.Exit(1)
			}

			token, err := MintToken(config.Config.Auth.JWTSecret, userID, tokenTTL)
			if err != nil {
				panic(err)
			}
			fmt.Println(token)
		},
	}
	mintTokenCommand.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "How long the token stays valid")
	adminCommand.AddCommand(mintTokenCommand)
}

func MintToken(secret string, userID uuid.UUID, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("token lifetime must be positive")
	}
	return auth.NewTokenVerifier(secret).Sign(userID, ttl)
}

func mustFetchAdmin(ctx context.Context, conn db.ConnOrTx) *models.User {
	if actingUser == "" {
		fmt.Printf("You must say which admin you are with --as.\n")
		os.Exit(1)
	}
	userID, err := uuid.Parse(actingUser)
	if err != nil {
		fmt.Printf("'%s' is not a valid profile id.\n", actingUser)
		os.Exit(1)
	}

	user, err := auth.FetchUser(ctx, conn, userID)
	if errors.Is(err, db.NotFound) {
		fmt.Printf("Profile %s not found.\n", userID)
		os.Exit(1)
	} else if err != nil {
		panic(err)
	}
	if !user.IsAdmin() {
		fmt.Printf("%s is not an admin.\n", user.BestName())
		os.Exit(1)
	}
	return user
}

func exitOnError(err error) {
	if err == nil {
		return
	}
	fmt.Printf("%v\n", err)
	os.Exit(1)
}
