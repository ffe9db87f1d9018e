package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/yourorg/zkcompliance/circuits"
	"github.com/yourorg/zkcompliance/pkg/merkle"
)

// AmountDecimals is the fixed-point precision of circuit amounts. Fractional
// digits beyond it are truncated silently, not rejected.
const AmountDecimals = 6

var amountScale = new(big.Int).SetUint64(1_000_000)

// ErrInvalidInput marks caller errors: malformed or missing circuit-input
// fields, rejected before any cryptographic work.
var ErrInvalidInput = errors.New("invalid circuit input")

// Codec encodes transaction and compliance data into circuit-compatible field
// elements. The threshold is service configuration rather than request data,
// since the rule engine does not ship it in the evidence payload.
type Codec struct {
	threshold uint64
}

func NewCodec(thresholdAmount string) (*Codec, error) {
	threshold, err := ScaleAmount(thresholdAmount)
	if err != nil {
		return nil, fmt.Errorf("threshold amount: %w", err)
	}
	return &Codec{threshold: threshold}, nil
}

func (c *Codec) Threshold() uint64 { return c.threshold }

// Encode validates the three collaborator payloads and produces the full
// circuit input, including the two public signals. The compliance hash is the
// native mirror of the circuit's binding hash: Poseidon2(leaf, aggregate).
func (c *Codec) Encode(tx *TransactionData, ev *ComplianceEvidence, mp *MerkleProof) (*CircuitInput, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: missing transactionData", ErrInvalidInput)
	}
	if ev == nil {
		return nil, fmt.Errorf("%w: missing complianceEvidence", ErrInvalidInput)
	}
	if mp == nil {
		return nil, fmt.Errorf("%w: missing merkleProof", ErrInvalidInput)
	}
	if strings.TrimSpace(tx.WalletFrom) == "" {
		return nil, fmt.Errorf("%w: missing field wallet_from", ErrInvalidInput)
	}
	if strings.TrimSpace(tx.WalletTo) == "" {
		return nil, fmt.Errorf("%w: missing field wallet_to", ErrInvalidInput)
	}
	if strings.TrimSpace(tx.Amount) == "" {
		return nil, fmt.Errorf("%w: missing field amount", ErrInvalidInput)
	}
	if !ev.Decision.Valid() {
		return nil, fmt.Errorf("%w: decision %q is not one of PASS, HOLD, REJECT", ErrInvalidInput, ev.Decision)
	}
	if ev.RiskScore < 0 || ev.RiskScore > 100 {
		return nil, fmt.Errorf("%w: risk_score %d outside [0,100]", ErrInvalidInput, ev.RiskScore)
	}
	if strings.TrimSpace(mp.RootHash) == "" {
		return nil, fmt.Errorf("%w: missing field root_hash", ErrInvalidInput)
	}
	if len(mp.PathIndices) != circuits.MerkleDepth {
		return nil, fmt.Errorf("%w: path_indices has %d elements, want %d", ErrInvalidInput, len(mp.PathIndices), circuits.MerkleDepth)
	}
	if len(mp.PathElements) != circuits.MerkleDepth {
		return nil, fmt.Errorf("%w: path_elements has %d elements, want %d", ErrInvalidInput, len(mp.PathElements), circuits.MerkleDepth)
	}

	amount, err := ScaleAmount(tx.Amount)
	if err != nil {
		return nil, err
	}

	in := &CircuitInput{
		TransactionAmount: amount,
		SourceWalletHash:  HashWallet(tx.WalletFrom),
		DestWalletHash:    HashWallet(tx.WalletTo),
		ThresholdAmount:   c.threshold,
	}
	if strings.TrimSpace(tx.KYCProofID) != "" {
		in.KYCStatus = 1
	}
	if ev.Decision != DecisionReject {
		in.BlacklistProof = 1
	}

	if in.MerkleRoot, err = ParseField(mp.RootHash); err != nil {
		return nil, fmt.Errorf("%w: root_hash: %v", ErrInvalidInput, err)
	}
	path := &merkle.Path{
		Indices:  make([]int, circuits.MerkleDepth),
		Siblings: make([]fr.Element, circuits.MerkleDepth),
	}
	for i, idx := range mp.PathIndices {
		if idx != 0 && idx != 1 {
			return nil, fmt.Errorf("%w: path_indices[%d] = %d, want 0 or 1", ErrInvalidInput, i, idx)
		}
		in.MerklePath[i] = uint8(idx)
		path.Indices[i] = idx
		if path.Siblings[i], err = ParseField(mp.PathElements[i]); err != nil {
			return nil, fmt.Errorf("%w: path_elements[%d]: %v", ErrInvalidInput, i, err)
		}
		in.MerkleSiblings[i] = path.Siblings[i]
	}

	// Mirror the circuit: leaf commitment, rule gates, aggregate, binding.
	// A path that does not reach the root still encodes (aggregate carries
	// the failure); proving will then fail on the in-circuit root assertion.
	var amountEl, kycEl fr.Element
	amountEl.SetUint64(in.TransactionAmount)
	kycEl.SetUint64(uint64(in.KYCStatus))
	leaf := merkle.Hash(amountEl, in.SourceWalletHash, in.DestWalletHash, kycEl)

	compliant := in.TransactionAmount <= in.ThresholdAmount &&
		in.KYCStatus == 1 &&
		in.BlacklistProof == 1 &&
		merkle.VerifyPath(in.MerkleRoot, leaf, path)

	var aggregate fr.Element
	if compliant {
		aggregate.SetOne()
	}
	in.ComplianceHash = merkle.Hash(leaf, aggregate)

	return in, nil
}

// HashWallet maps a wallet address to a field element: keccak256 of the
// lower-cased address, reduced into the scalar field. Case-normalizing keeps
// prover and verifier in agreement however the address was typed upstream.
func HashWallet(address string) fr.Element {
	digest := ethcrypto.Keccak256([]byte(strings.ToLower(strings.TrimSpace(address))))
	var el fr.Element
	el.SetBigInt(new(big.Int).SetBytes(digest))
	return el
}

// ScaleAmount converts a decimal amount string into a fixed-point integer
// with AmountDecimals digits of precision. Digits beyond the sixth decimal
// place are truncated. Negative amounts cannot be represented in the
// circuit's unsigned range and are rejected here.
func ScaleAmount(amount string) (uint64, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrInvalidInput)
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: negative amount %q", ErrInvalidInput, amount)
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > AmountDecimals {
		fracPart = fracPart[:AmountDecimals] // silent truncation
	}
	fracPart += strings.Repeat("0", AmountDecimals-len(fracPart))

	whole, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return 0, fmt.Errorf("%w: malformed amount %q", ErrInvalidInput, amount)
	}
	frac, ok := new(big.Int).SetString(fracPart, 10)
	if !ok {
		return 0, fmt.Errorf("%w: malformed amount %q", ErrInvalidInput, amount)
	}

	scaled := new(big.Int).Mul(whole, amountScale)
	scaled.Add(scaled, frac)
	if !scaled.IsUint64() {
		return 0, fmt.Errorf("%w: amount %q exceeds the 64-bit fixed-point range", ErrInvalidInput, amount)
	}
	return scaled.Uint64(), nil
}

// ParseField parses a decimal or 0x-prefixed hex string into a field element.
// Values at or above the field modulus are rejected rather than silently
// reduced; they cannot have come from the Poseidon2 tree.
func ParseField(s string) (fr.Element, error) {
	var el fr.Element
	str := strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(str, "0x") || strings.HasPrefix(str, "0X") {
		str, base = str[2:], 16
	}
	v, ok := new(big.Int).SetString(str, base)
	if !ok {
		return el, fmt.Errorf("malformed field element %q", s)
	}
	if v.Sign() < 0 || v.Cmp(fr.Modulus()) >= 0 {
		return el, fmt.Errorf("value %q outside the scalar field", s)
	}
	el.SetBigInt(v)
	return el, nil
}

// DigestEvidence computes the audit digest of the rule engine's decision:
// sha256 over the canonical JSON of decision, risk score and rule outcomes.
// It binds the public claim to the proof record independently of the
// circuit's algebraic hashing.
func DigestEvidence(ev *ComplianceEvidence) string {
	canonical := struct {
		Decision  Decision      `json:"decision"`
		RiskScore int           `json:"risk_score"`
		Rules     []RuleOutcome `json:"rules_evaluated"`
	}{ev.Decision, ev.RiskScore, ev.Rules}

	raw, _ := json.Marshal(canonical)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Hash returns the audit digest of the full circuit input: equal for
// logically identical requests, stored instead of the secrets themselves.
func (in *CircuitInput) Hash() string {
	siblings := make([]string, len(in.MerkleSiblings))
	for i := range in.MerkleSiblings {
		siblings[i] = in.MerkleSiblings[i].String()
	}
	canonical := struct {
		MerkleRoot        string   `json:"merkle_root"`
		ComplianceHash    string   `json:"compliance_hash"`
		TransactionAmount uint64   `json:"transaction_amount"`
		SourceWalletHash  string   `json:"source_wallet_hash"`
		DestWalletHash    string   `json:"dest_wallet_hash"`
		KYCStatus         uint8    `json:"kyc_status"`
		ThresholdAmount   uint64   `json:"threshold_amount"`
		BlacklistProof    uint8    `json:"blacklist_proof"`
		MerklePath        []uint8  `json:"merkle_path"`
		MerkleSiblings    []string `json:"merkle_siblings"`
	}{
		in.MerkleRoot.String(),
		in.ComplianceHash.String(),
		in.TransactionAmount,
		in.SourceWalletHash.String(),
		in.DestWalletHash.String(),
		in.KYCStatus,
		in.ThresholdAmount,
		in.BlacklistProof,
		in.MerklePath[:],
		siblings,
	}

	raw, _ := json.Marshal(canonical)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
