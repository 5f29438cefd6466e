// Command otpverify mounts the OTP verification flow in a terminal against a
// running WellNest API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/wellnest/wellnest-api/internal/otpflow"
	"github.com/wellnest/wellnest-api/pkg/authclient"
	"github.com/wellnest/wellnest-api/pkg/logger"
	"github.com/wellnest/wellnest-api/pkg/session"
)

type options struct {
	Email     string        `mapstructure:"email"`
	Phone     string        `mapstructure:"phone"`
	Variant   string        `mapstructure:"variant"`
	APIURL    string        `mapstructure:"api-url"`
	Delay     time.Duration `mapstructure:"delay"`
	RedisAddr string        `mapstructure:"redis-addr"`
	LogLevel  string        `mapstructure:"log-level"`
}

func (o options) identity() otpflow.Identity {
	return otpflow.Identity{
		Email:   o.Email,
		Phone:   o.Phone,
		Variant: otpflow.Variant(strings.ToLower(o.Variant)),
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "otpverify",
		Short: "Enter a WellNest one-time code from the terminal",
		Long: `Mounts the OTP verification screen for an email or phone.

Type digits (one or several per line), "<" to delete, "clear", "submit",
"resend" or "quit". A complete code is submitted automatically after --delay.`,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile == "" {
				return nil
			}
			v.SetConfigFile(configFile)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts options
			if err := v.Unmarshal(&opts); err != nil {
				return fmt.Errorf("invalid options: %w", err)
			}
			return run(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file (yaml, json, toml or env)")
	f.String("email", "", "email the code was sent to")
	f.String("phone", "", "phone the code was sent to (used when --email is empty)")
	f.String("variant", string(otpflow.VariantRegistration), "registration or password_reset")
	f.String("api-url", "http://localhost:8080/api/v1", "WellNest API base URL")
	f.Duration("delay", otpflow.DefaultAutoSubmitDelay, "auto-submit delay after the last digit")
	f.String("redis-addr", "", "persist the session in Redis at this address instead of memory")
	f.String("log-level", "warn", "debug, info, warn or error")
	_ = v.BindPFlags(f)

	v.SetEnvPrefix("WELLNEST")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return cmd
}

func run(ctx context.Context, opts options, in io.Reader, out, errOut io.Writer) error {
	log := logger.New(logger.Config{Level: opts.LogLevel, Output: errOut})

	store, closeStore, err := openSessionStore(ctx, opts, log)
	if err != nil {
		return err
	}
	defer closeStore()

	term := newTerminal(out)
	identity := opts.identity()
	ctrl, err := otpflow.New(identity, otpflow.Options{
		Auth:            authclient.New(opts.APIURL, nil, log),
		Navigator:       term,
		Sessions:        store,
		View:            term,
		Logger:          log,
		AutoSubmitDelay: opts.Delay,
	})
	var missing *otpflow.MissingIdentityError
	if errors.As(err, &missing) {
		route, _ := term.Landing()
		return fmt.Errorf("%w: pass --email or --phone and a valid --variant (go back to %s)", err, route)
	}
	if err != nil {
		return err
	}
	defer ctrl.Close()

	fmt.Fprintf(out, "Enter the code sent to %s (%s)\n", identity.Value(), identity.Variant)
	if err := term.run(ctx, ctrl, in); err != nil {
		return err
	}

	route, params := term.Landing()
	if route == "" {
		fmt.Fprintln(out, "verification not completed")
		return nil
	}
	fmt.Fprintf(out, "-> %s %s\n", route, describe(params))
	return nil
}

func openSessionStore(ctx context.Context, opts options, log logrus.FieldLogger) (otpflow.SessionStore, func(), error) {
	if opts.RedisAddr == "" {
		return session.NewMemoryStore(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.WithField("addr", opts.RedisAddr).Info("session store: redis")
	ns := opts.identity().Value()
	return session.NewRedisStore(rdb, ns, 0), func() { _ = rdb.Close() }, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
