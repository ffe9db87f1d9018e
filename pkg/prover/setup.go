// Package prover compiles the compliance circuit, manages the Groth16 key
// artifacts and generates proofs.
package prover

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/yourorg/zkcompliance/circuits"
)

const (
	ProvingKeyFile   = "compliance_pk.bin"
	VerifyingKeyFile = "compliance_vk.bin"
)

// Artifacts holds the compiled constraint system and the Groth16 key pair.
// Built once at startup and shared read-only across all concurrent proving
// and verification calls; no locking is needed after construction.
type Artifacts struct {
	CS constraint.ConstraintSystem
	PK groth16.ProvingKey
	VK groth16.VerifyingKey
}

// Compile builds the constraint system for the compliance circuit.
func Compile() (constraint.ConstraintSystem, error) {
	cs, err := frontend.Compile(
		circuits.Curve().ScalarField(),
		r1cs.NewBuilder,
		&circuits.ComplianceCircuit{},
	)
	if err != nil {
		return nil, fmt.Errorf("compile compliance circuit: %w", err)
	}
	return cs, nil
}

// LoadOrSetup compiles the circuit and loads the cached proving/verification
// keys from dir, running (and caching) a fresh setup when they are absent.
// The cache keeps restarts cheap; a production deployment replaces the files
// with ceremony output.
func LoadOrSetup(dir string) (*Artifacts, error) {
	cs, err := Compile()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	pkPath := filepath.Join(dir, ProvingKeyFile)
	vkPath := filepath.Join(dir, VerifyingKeyFile)

	if pk, vk, err := readKeys(pkPath, vkPath); err == nil {
		return &Artifacts{CS: cs, PK: pk, VK: vk}, nil
	}

	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup: %w", err)
	}
	if err := writeKeys(pk, vk, pkPath, vkPath); err != nil {
		return nil, err
	}
	return &Artifacts{CS: cs, PK: pk, VK: vk}, nil
}

// Load compiles the circuit and loads existing keys, erroring when they are
// missing. Used when setup-on-start is disabled and the verifier should run
// degraded instead of generating throwaway keys.
func Load(dir string) (*Artifacts, error) {
	cs, err := Compile()
	if err != nil {
		return nil, err
	}
	pk, vk, err := readKeys(filepath.Join(dir, ProvingKeyFile), filepath.Join(dir, VerifyingKeyFile))
	if err != nil {
		return nil, err
	}
	return &Artifacts{CS: cs, PK: pk, VK: vk}, nil
}

// LoadVerifyingKey loads only the verification key from dir.
func LoadVerifyingKey(dir string) (groth16.VerifyingKey, error) {
	raw, err := os.ReadFile(filepath.Join(dir, VerifyingKeyFile))
	if err != nil {
		return nil, err
	}
	vk := groth16.NewVerifyingKey(circuits.Curve())
	if _, err := vk.ReadFrom(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("read verifying key: %w", err)
	}
	return vk, nil
}

func readKeys(pkPath, vkPath string) (groth16.ProvingKey, groth16.VerifyingKey, error) {
	pkBytes, err := os.ReadFile(pkPath)
	if err != nil {
		return nil, nil, err
	}
	vkBytes, err := os.ReadFile(vkPath)
	if err != nil {
		return nil, nil, err
	}

	pk := groth16.NewProvingKey(circuits.Curve())
	if _, err := pk.ReadFrom(bytes.NewReader(pkBytes)); err != nil {
		return nil, nil, fmt.Errorf("read proving key: %w", err)
	}
	vk := groth16.NewVerifyingKey(circuits.Curve())
	if _, err := vk.ReadFrom(bytes.NewReader(vkBytes)); err != nil {
		return nil, nil, fmt.Errorf("read verifying key: %w", err)
	}
	return pk, vk, nil
}

func writeKeys(pk groth16.ProvingKey, vk groth16.VerifyingKey, pkPath, vkPath string) error {
	var buf bytes.Buffer
	if _, err := pk.WriteTo(&buf); err != nil {
		return fmt.Errorf("serialize proving key: %w", err)
	}
	if err := os.WriteFile(pkPath, buf.Bytes(), 0o644); err != nil {
		return err
	}

	buf.Reset()
	if _, err := vk.WriteTo(&buf); err != nil {
		return fmt.Errorf("serialize verifying key: %w", err)
	}
	return os.WriteFile(vkPath, buf.Bytes(), 0o644)
}
