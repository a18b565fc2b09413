// Package solana implements the ledger contract on top of a Solana JSON-RPC
// node.
package solana

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/nightspite/sol-pos/internal/ledger"
)

var tracer = otel.Tracer("github.com/nightspite/sol-pos/internal/ledger/solana")

// RPC is the subset of the JSON-RPC client used here.
type RPC interface {
	GetSignaturesForAddressWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetSignaturesForAddressOpts) ([]*rpc.TransactionSignature, error)
	GetTransaction(ctx context.Context, signature solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
}

type Client struct {
	rpc RPC
}

func New(endpoint string) *Client {
	return NewWithRPC(rpc.New(endpoint))
}

func NewWithRPC(r RPC) *Client {
	return &Client{
		rpc: r,
	}
}

// FindReference returns the oldest successful finalized transaction that
// lists the reference among its accounts.
func (c *Client) FindReference(ctx context.Context, reference string) (string, error) {
	ctx, span := tracer.Start(ctx, "solana.FindReference")
	defer span.End()
	span.SetAttributes(attribute.String("reference", reference))

	key, err := solana.PublicKeyFromBase58(reference)
	if err != nil {
		return "", fmt.Errorf("solana.PublicKeyFromBase58 -> %w", err)
	}

	sigs, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, key, &rpc.GetSignaturesForAddressOpts{
		Commitment: rpc.CommitmentFinalized,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("c.rpc.GetSignaturesForAddressWithOpts -> %w", err)
	}

	// newest first
	for i := len(sigs) - 1; i >= 0; i-- {
		if sigs[i] != nil && sigs[i].Err == nil {
			return sigs[i].Signature.String(), nil
		}
	}

	return "", ledger.ErrReferenceNotFound
}

// ValidateTransfer checks that the transaction behind signature succeeded,
// carries the reference and raised the recipient's token balance by at
// least the expected amount.
func (c *Client) ValidateTransfer(ctx context.Context, signature string, transfer ledger.Transfer) error {
	ctx, span := tracer.Start(ctx, "solana.ValidateTransfer")
	defer span.End()
	span.SetAttributes(
		attribute.String("signature", signature),
		attribute.String("reference", transfer.Reference),
		attribute.String("amount", transfer.Amount.String()),
	)

	expected, err := parseTransfer(transfer)
	if err != nil {
		return err
	}

	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return fmt.Errorf("%w: malformed signature", ledger.ErrInvalidTransfer)
	}

	maxVersion := uint64(0)
	res, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentFinalized,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return ledger.ErrReferenceNotFound
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("c.rpc.GetTransaction -> %w", err)
	}
	if res == nil || res.Meta == nil || res.Transaction == nil {
		return ledger.ErrReferenceNotFound
	}

	tx, err := res.Transaction.GetTransaction()
	if err != nil {
		return fmt.Errorf("%w: undecodable transaction: %w", ledger.ErrInvalidTransfer, err)
	}
	if tx == nil {
		return fmt.Errorf("%w: empty transaction", ledger.ErrInvalidTransfer)
	}

	if err = checkTransfer(tx.Message.AccountKeys, res.Meta, expected); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

type expectedTransfer struct {
	recipient solana.PublicKey
	mint      solana.PublicKey
	reference solana.PublicKey
	amount    decimal.Decimal
}

func parseTransfer(t ledger.Transfer) (expectedTransfer, error) {
	recipient, err := solana.PublicKeyFromBase58(t.Recipient)
	if err != nil {
		return expectedTransfer{}, fmt.Errorf("%w: recipient: %w", ledger.ErrBadTransfer, err)
	}
	mint, err := solana.PublicKeyFromBase58(t.SPLToken)
	if err != nil {
		return expectedTransfer{}, fmt.Errorf("%w: spl token: %w", ledger.ErrBadTransfer, err)
	}
	reference, err := solana.PublicKeyFromBase58(t.Reference)
	if err != nil {
		return expectedTransfer{}, fmt.Errorf("%w: reference: %w", ledger.ErrBadTransfer, err)
	}

	return expectedTransfer{
		recipient: recipient,
		mint:      mint,
		reference: reference,
		amount:    t.Amount,
	}, nil
}

func checkTransfer(accounts []solana.PublicKey, meta *rpc.TransactionMeta, want expectedTransfer) error {
	if meta.Err != nil {
		return fmt.Errorf("%w: transaction failed on chain", ledger.ErrInvalidTransfer)
	}

	if !containsKey(accounts, want.reference) {
		return fmt.Errorf("%w: reference %s not in transaction", ledger.ErrInvalidTransfer, want.reference)
	}

	post, ok := findTokenBalance(meta.PostTokenBalances, want.recipient, want.mint)
	if !ok {
		return fmt.Errorf("%w: recipient holds no %s", ledger.ErrInvalidTransfer, want.mint)
	}

	postAmount, err := uiAmount(post.UiTokenAmount)
	if err != nil {
		return err
	}

	preAmount := decimal.Zero
	for _, b := range meta.PreTokenBalances {
		if b.AccountIndex == post.AccountIndex {
			if preAmount, err = uiAmount(b.UiTokenAmount); err != nil {
				return err
			}
			break
		}
	}

	received := postAmount.Sub(preAmount)
	if received.LessThan(want.amount) {
		return fmt.Errorf("%w: received %s, expected %s", ledger.ErrInvalidTransfer, received, want.amount)
	}

	return nil
}

func containsKey(keys []solana.PublicKey, key solana.PublicKey) bool {
	for _, k := range keys {
		if k.Equals(key) {
			return true
		}
	}

	return false
}

func findTokenBalance(balances []rpc.TokenBalance, owner, mint solana.PublicKey) (rpc.TokenBalance, bool) {
	for _, b := range balances {
		if b.Owner != nil && b.Owner.Equals(owner) && b.Mint.Equals(mint) {
			return b, true
		}
	}

	return rpc.TokenBalance{}, false
}

func uiAmount(a *rpc.UiTokenAmount) (decimal.Decimal, error) {
	if a == nil {
		return decimal.Zero, nil
	}

	raw, err := decimal.NewFromString(a.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: token amount %q: %w", ledger.ErrInvalidTransfer, a.Amount, err)
	}

	return raw.Shift(-int32(a.Decimals)), nil
}
