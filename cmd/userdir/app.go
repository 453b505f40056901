package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/icza/userdir"
	"github.com/icza/userdir/internal/config"
	"github.com/icza/userdir/internal/logger"
	"github.com/icza/userdir/redisstore"
)

var errUsage = errors.New("usage: userdir [-config dir] <create|find|list|purge|set-token|set-password|logout|verify> [args]")

// run parses the command line, builds the Directory and executes the command.
func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("userdir", flag.ContinueOnError)
	configDir := fs.String("config", ".", "directory of config.yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return err
	}
	defer log.Sync()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	d := userdir.NewDirectory(store, userdir.NewBcryptHasher(cfg.Bcrypt.Cost), userdir.Config{
		DefaultPageLimit: cfg.Page.DefaultLimit,
		MaxPageLimit:     cfg.Page.MaxLimit,
		Logger:           log,
	})

	return execute(ctx, d, fs.Args(), out)
}

// openStore connects to the configured store backend.
// The returned function releases the store's resources.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (userdir.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return userdir.NewMemoryStore(), func() {}, nil

	case config.BackendRedis:
		s := redisstore.New(redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, nil, err
		}
		log.Debug("connected to Redis", zap.String("addr", cfg.Redis.Addr))
		return s, func() { s.Close() }, nil

	case config.BackendMongo:
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, nil, fmt.Errorf("can not connect MongoDB: %w", err)
		}
		closeClient := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Warn("failed to disconnect MongoDB", zap.Error(err))
			}
		}
		if err := client.Ping(ctx, nil); err != nil {
			closeClient()
			return nil, nil, fmt.Errorf("can not connect MongoDB: %w", err)
		}
		s := userdir.NewMongoStore(client, userdir.MongoConfig{
			DBName:              cfg.Mongo.DB,
			UsersCollectionName: cfg.Mongo.Collection,
		})
		if err := s.EnsureIndexes(ctx); err != nil {
			closeClient()
			return nil, nil, err
		}
		log.Debug("connected to MongoDB", zap.String("db", cfg.Mongo.DB))
		return s, closeClient, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend: %q", cfg.Store.Backend)
}

// execute runs a single command against d, printing the result to out.
func execute(ctx context.Context, d *userdir.Directory, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]

	need := func(lo, hi int) error {
		if len(args) < lo || len(args) > hi {
			return fmt.Errorf("%s: wrong number of arguments\n%w", cmd, errUsage)
		}
		return nil
	}

	var result any
	switch cmd {
	case "create":
		if err := need(2, 4); err != nil {
			return err
		}
		nu := userdir.NewUser{Email: args[0], Password: args[1]}
		if len(args) > 2 {
			nu.FirstName = args[2]
		}
		if len(args) > 3 {
			nu.LastName = args[3]
		}
		user, err := d.Create(ctx, nu)
		if err != nil {
			return err
		}
		result = user

	case "find":
		if err := need(1, 1); err != nil {
			return err
		}
		user, err := d.FindOne(ctx, args[0])
		if err != nil {
			return err
		}
		result = user

	case "list":
		if err := need(0, 2); err != nil {
			return err
		}
		var nums [2]int
		for i, arg := range args {
			n, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("list: invalid number %q", arg)
			}
			nums[i] = n
		}
		page, err := d.FindAll(ctx, nums[0], nums[1])
		if err != nil {
			return err
		}
		result = page

	case "purge":
		if err := need(0, 0); err != nil {
			return err
		}
		if err := d.DeleteAll(ctx); err != nil {
			return err
		}
		result = true

	case "set-token":
		if err := need(2, 2); err != nil {
			return err
		}
		user, err := d.UpdateRefreshToken(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		result = user

	case "set-password":
		if err := need(2, 2); err != nil {
			return err
		}
		user, err := d.UpdatePassword(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		result = user

	case "logout":
		if err := need(1, 1); err != nil {
			return err
		}
		ok, err := d.Logout(ctx, args[0])
		if err != nil {
			return err
		}
		result = ok

	case "verify":
		if err := need(2, 2); err != nil {
			return err
		}
		user, err := d.VerifyPassword(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		result = user != nil

	default:
		return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
