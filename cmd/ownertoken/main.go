package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/VickyKR37/autobook/internal/infra/config"
	"github.com/VickyKR37/autobook/internal/infra/security"
	transportgrpc "github.com/VickyKR37/autobook/internal/transport/grpc"
)

func main() {
	accountID := flag.String("account", "", "owner account id placed in the token subject")
	email := flag.String("email", "", "optional owner email claim")
	ttl := flag.Duration("ttl", 15*time.Minute, "token lifetime")
	regenerate := flag.String("regenerate", "", "gRPC address; when set, regenerate the access code with the minted token")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	verifier, err := security.NewOwnerTokenVerifier(security.OwnerTokenConfig{
		Secret:   cfg.Auth.TokenSecret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
	})
	if err != nil {
		log.Fatalf("failed to init token verifier: %v", err)
	}

	token, err := verifier.IssueOwnerToken(*accountID, *email, *ttl)
	if err != nil {
		log.Fatalf("failed to mint token: %v", err)
	}
	fmt.Println(token)

	if *regenerate == "" {
		return
	}

	conn, err := grpc.NewClient(*regenerate, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("did not connect: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)

	resp := new(structpb.Struct)
	if err := conn.Invoke(ctx, transportgrpc.RegenerateAccessCodeMethod, &structpb.Struct{}, resp); err != nil {
		log.Fatalf("RegenerateAccessCode failed: %v", err)
	}

	fmt.Println("New access code:", resp.GetFields()["newAccessCode"].GetStringValue())
}
