package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go-inventory-uom/internal/config"
	"go-inventory-uom/internal/middleware"
	"go-inventory-uom/pkg/jwt"
	"go-inventory-uom/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	envFile := flag.String("env", "", "optional .env file")
	userID := flag.String("user", "", "operator id (token subject)")
	name := flag.String("name", "", "operator display name, recorded on transformations")
	email := flag.String("email", "", "operator email")
	privileges := flag.String("privileges",
		strings.Join([]string{middleware.PrivilegeTransformationExecute, middleware.PrivilegeStockRestore, middleware.PrivilegeMasterWrite}, ","),
		"comma separated privilege codes")
	flag.Parse()

	log := logger.Must(logger.New("info"))
	defer log.Sync()

	if *userID == "" {
		log.Fatal("missing -user")
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	var codes []string
	for _, p := range strings.Split(*privileges, ",") {
		if p = strings.TrimSpace(p); p != "" {
			codes = append(codes, p)
		}
	}

	signer := jwt.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	token, err := signer.GenerateToken(*userID, *email, *name, codes)
	if err != nil {
		log.Fatal("failed to sign token", zap.Error(err))
	}

	log.Info("token issued",
		zap.String("user", *userID),
		zap.Strings("privileges", codes),
		zap.Duration("ttl", cfg.Auth.TokenTTL))
	fmt.Fprintln(os.Stdout, token)
}
