package walletd

import (
	"encoding/json"
	"fmt"
	"os"

	"buddy_go/internal/domain"
	"buddy_go/internal/order"
)

// AccountKey is the keyfile content. Exactly one field is set.
type AccountKey struct {
	Mnemonic    string `json:"mnemonic,omitempty"`
	RootEntropy string `json:"root_entropy,omitempty"`
}

// LoadAccountKey reads a json keyfile holding a mnemonic or root entropy.
func LoadAccountKey(path string) (AccountKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AccountKey{}, fmt.Errorf("read keyfile: %w", err)
	}
	var key AccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return AccountKey{}, fmt.Errorf("parse keyfile: %w", err)
	}
	if (key.Mnemonic == "") == (key.RootEntropy == "") {
		return AccountKey{}, fmt.Errorf("keyfile must contain exactly one of mnemonic or root_entropy")
	}
	return key, nil
}

// UTXO is an unspent output owned by the monitored account.
// TxOut is passed back to the daemon untouched.
type UTXO struct {
	Value    uint64          `json:"value,string"`
	TokenID  domain.TokenID  `json:"token_id,string"`
	KeyImage string          `json:"key_image"`
	TxOut    json.RawMessage `json:"tx_out,omitempty"`
}

func (u UTXO) Amount() domain.Amount { return domain.NewAmount(u.Value, u.TokenID) }

// TxProposal is a built, signed transaction ready for submission.
type TxProposal struct {
	Fee        uint64          `json:"fee,string"`
	FeeTokenID domain.TokenID  `json:"fee_token_id,string"`
	Tx         json.RawMessage `json:"tx"`
}

// Receipt identifies a submitted transaction for status queries.
type Receipt struct {
	KeyImages      []string `json:"key_images"`
	TombstoneBlock uint64   `json:"tombstone_block,string"`
}

type TxStatus string

const (
	TxStatusUnknown   TxStatus = "unknown"
	TxStatusVerified  TxStatus = "verified"
	TxStatusTombstone TxStatus = "tombstone_block_exceeded"
	TxStatusInvalid   TxStatus = "invalid"
)

// Settled reports whether the ledger has decided the transaction.
func (s TxStatus) Settled() bool { return s != TxStatusUnknown }

type ledgerInfoResponse struct {
	BlockCount uint64 `json:"block_count,string"`
	TxoCount   uint64 `json:"txo_count,string"`
}

type addMonitorRequest struct {
	AccountKey
	FirstSubaddress uint64 `json:"first_subaddress"`
	NumSubaddresses uint64 `json:"num_subaddresses"`
}

type addMonitorResponse struct {
	MonitorID string `json:"monitor_id"`
}

type monitorStatusResponse struct {
	NextBlock uint64 `json:"next_block,string"`
}

type balanceResponse struct {
	Balance uint64 `json:"balance,string"`
}

type utxosResponse struct {
	OutputList []UTXO `json:"output_list"`
}

type publicAddressResponse struct {
	B58AddressCode string `json:"b58_address_code"`
}

type networkStatusResponse struct {
	NetworkHighestBlockIndex uint64            `json:"network_highest_block_index,string"`
	MinimumFees              map[string]string `json:"minimum_fees"`
}

type payRequest struct {
	ReceiverB58Code string         `json:"receiver_b58_code"`
	Value           uint64         `json:"value,string"`
	TokenID         domain.TokenID `json:"token_id,string"`
}

type receiptResponse struct {
	SenderTxReceipt Receipt `json:"sender_tx_receipt"`
}

type statusRequest struct {
	Receipt Receipt `json:"receipt"`
}

type statusResponse struct {
	Status TxStatus `json:"status"`
}

type generateSwapRequest struct {
	Input            UTXO           `json:"input"`
	CounterValue     uint64         `json:"counter_value,string"`
	CounterTokenID   domain.TokenID `json:"counter_token_id,string"`
	AllowPartialFill bool           `json:"allow_partial_fill"`
	MinimumFillValue uint64         `json:"minimum_fill_value,string"`
}

type generateSwapResponse struct {
	SCI *order.SignedOrder `json:"sci"`
}

type fulfillRequest struct {
	SCI              *order.SignedOrder `json:"sci"`
	PartialFillValue uint64             `json:"partial_fill_value,string"`
	InputList        []UTXO             `json:"input_list"`
	FeeTokenID       domain.TokenID     `json:"fee_token_id,string"`
}

type txProposalResponse struct {
	TxProposal TxProposal `json:"tx_proposal"`
}

type submitRequest struct {
	TxProposal TxProposal `json:"tx_proposal"`
}

// apiError is the body the daemon returns on non-2xx responses.
type apiError struct {
	Error string `json:"error"`
}
