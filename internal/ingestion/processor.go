package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"pump-sentinel/internal/decoder"
	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/observability"
	"pump-sentinel/internal/solana"
	"pump-sentinel/internal/storage"
)

// confirmAttempts bounds chain reads during webhook reconciliation.
const confirmAttempts = 3

// ItemError reports one rejected or failed record of a batch.
type ItemError struct {
	Index     int    // position in the batch, -1 for batch-level failures
	Signature string // empty when the record never validated
	Reason    string
}

// BatchResult summarizes one processed batch.
type BatchResult struct {
	Processed int // records applied
	Skipped   int // irrelevant, untracked, failed on chain, or foreign discriminator
	Errors    []ItemError
}

// Processor is the batched-stream ingestion path. Batches are independent;
// within a batch, creates apply before trades so a launch and its first
// trades arriving together land in order.
type Processor struct {
	rpc        solana.RPCClient
	rot        solana.Rotator
	sink       *EventSink
	normalizer *Normalizer
	creates    storage.CreateEventStore
	programID  string
}

// NewProcessor wires a Processor. rot rotates the pool between retry
// attempts; both are typically the same PooledClient.
func NewProcessor(
	rpc solana.RPCClient,
	rot solana.Rotator,
	sink *EventSink,
	normalizer *Normalizer,
	creates storage.CreateEventStore,
	programID string,
) *Processor {
	return &Processor{
		rpc:        rpc,
		rot:        rot,
		sink:       sink,
		normalizer: normalizer,
		creates:    creates,
		programID:  programID,
	}
}

// ProcessBatches runs each batch concurrently. Per-item failures land in the
// batch's result; only context cancellation aborts the whole call.
func (p *Processor) ProcessBatches(ctx context.Context, batches [][]byte) ([]BatchResult, error) {
	results := make([]BatchResult, len(batches))

	g, ctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		g.Go(func() error {
			results[i] = p.processBatch(ctx, batch)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (p *Processor) processBatch(ctx context.Context, batch []byte) BatchResult {
	var res BatchResult

	var items []json.RawMessage
	if err := json.Unmarshal(batch, &items); err != nil {
		res.Errors = append(res.Errors, ItemError{Index: -1, Reason: fmt.Sprintf("batch is not an array: %v", err)})
		return res
	}

	type indexed struct {
		idx int
		rec *StreamRecord
	}
	var creates, others []indexed

	for idx, item := range items {
		rec, err := ValidateRecord(item, p.programID)
		if err != nil {
			res.Errors = append(res.Errors, ItemError{Index: idx, Reason: err.Error()})
			continue
		}
		if rec == nil {
			res.Skipped++
			continue
		}

		inv := rec.Tracked(p.programID)
		if decoder.IsCreateInstruction(inv.Data) {
			creates = append(creates, indexed{idx, rec})
		} else {
			others = append(others, indexed{idx, rec})
		}
	}

	// Creates first so trades in the same batch find their mint tracked.
	for _, it := range append(creates, others...) {
		processed, err := p.processRecord(ctx, it.rec)
		switch {
		case err != nil:
			res.Errors = append(res.Errors, ItemError{Index: it.idx, Signature: it.rec.Signature, Reason: err.Error()})
		case processed:
			res.Processed++
		default:
			res.Skipped++
		}
	}

	observability.RecordBatch(res.Skipped, len(res.Errors))
	return res
}

// processRecord applies one validated record. Returns (false, nil) for
// records skipped on purpose: untracked mints, transactions that failed on
// chain, and foreign discriminators.
func (p *Processor) processRecord(ctx context.Context, rec *StreamRecord) (bool, error) {
	inv := rec.Tracked(p.programID)

	accounts := make([]string, len(inv.Accounts))
	for i, a := range inv.Accounts {
		accounts[i] = a.Pubkey
	}

	instr, err := decoder.ParseInstruction(inv.Data, accounts)
	if errors.Is(err, decoder.ErrUnknownInstruction) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("parse instruction: %w", err)
	}

	// A buy or sell on a mint we never saw launch is not actionable.
	if instr.Kind != decoder.InstructionCreate {
		if _, err := p.creates.GetByMint(ctx, instr.Mint); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return false, nil
			}
			return false, fmt.Errorf("look up mint %s: %w", instr.Mint, err)
		}
	}

	// Webhook delivery can outrun confirmation; trust the chain, not the
	// delivered success flag.
	tx, err := p.confirm(ctx, rec.Signature)
	if err != nil {
		return false, err
	}
	if tx == nil {
		return false, fmt.Errorf("transaction %s not found on chain", rec.Signature)
	}
	if tx.Meta != nil && tx.Meta.Err != nil {
		return false, nil
	}

	// Logs carry the emitted event directly; instruction decoding is
	// reconstruction and strictly a fallback.
	logs := rec.Logs
	if tx.Meta != nil && len(tx.Meta.LogMessages) > 0 {
		logs = tx.Meta.LogMessages
	}
	if raw, ok := decoder.EventFromLogs(logs); ok {
		return true, p.applyEvent(ctx, raw, rec)
	}

	return p.applyInstruction(ctx, instr, rec)
}

func (p *Processor) applyEvent(ctx context.Context, raw *decoder.RawEvent, rec *StreamRecord) error {
	switch {
	case raw.Create != nil:
		if err := p.sink.ApplyCreate(ctx, CreateEvent(raw.Create, rec.Signature, rec.Slot, rec.BlockTime)); err != nil {
			return err
		}
		observability.RecordEventProcessed("create", "webhook")
	case raw.Trade != nil:
		if err := p.sink.ApplyTrade(ctx, p.normalizer.TradeEvent(ctx, raw.Trade, rec.Signature, rec.Slot)); err != nil {
			return err
		}
		observability.RecordEventProcessed("trade", "webhook")
	case raw.Complete != nil:
		if err := p.sink.ApplyComplete(ctx, CompleteEvent(raw.Complete)); err != nil {
			return err
		}
		observability.RecordEventProcessed("complete", "webhook")
	}
	return nil
}

// applyInstruction reconstructs the event from the instruction alone: the
// bonding curve state as of the record's slot supplies the reserves, and the
// constant-product formula supplies the SOL side of the trade.
func (p *Processor) applyInstruction(ctx context.Context, instr *decoder.Instruction, rec *StreamRecord) (bool, error) {
	if instr.Kind == decoder.InstructionCreate {
		ev := CreateEvent(&decoder.RawCreate{
			Name:         instr.Name,
			Symbol:       instr.Symbol,
			URI:          instr.URI,
			Mint:         instr.Mint,
			BondingCurve: instr.BondingCurve,
			User:         instr.User,
		}, rec.Signature, rec.Slot, rec.BlockTime)
		if err := p.sink.ApplyCreate(ctx, ev); err != nil {
			return false, err
		}
		observability.RecordEventProcessed("create", "webhook")
		return true, nil
	}

	// The account list comes straight off the webhook. Before trusting it
	// for a chain read, check the curve account really is the mint's PDA.
	derived, err := solana.BondingCurveAddress(instr.Mint, p.programID)
	if err != nil {
		return false, fmt.Errorf("derive bonding curve for %s: %w", instr.Mint, err)
	}
	if derived != instr.BondingCurve {
		return false, fmt.Errorf("bonding curve %s is not the derived address %s for mint %s",
			instr.BondingCurve, derived, instr.Mint)
	}

	state, err := p.curveStateAt(ctx, derived, rec.Slot)
	if err != nil {
		return false, fmt.Errorf("read bonding curve %s: %w", instr.BondingCurve, err)
	}

	solAmount, err := decoder.SolForTokens(instr.Amount, state.VirtualSolReserves, state.VirtualTokenReserves)
	if err != nil {
		return false, fmt.Errorf("derive sol amount: %w", err)
	}

	raw := &decoder.RawTrade{
		Mint:                 instr.Mint,
		SolAmount:            solAmount,
		TokenAmount:          instr.Amount,
		IsBuy:                instr.Kind == decoder.InstructionBuy,
		User:                 instr.User,
		Timestamp:            rec.BlockTime,
		VirtualSolReserves:   state.VirtualSolReserves,
		VirtualTokenReserves: state.VirtualTokenReserves,
	}
	if err := p.sink.ApplyTrade(ctx, p.normalizer.TradeEvent(ctx, raw, rec.Signature, rec.Slot)); err != nil {
		return false, err
	}

	observability.RecordEventProcessed("trade", "webhook")
	log.Debug().Str("mint", instr.Mint).Str("signature", rec.Signature).Msg("trade reconstructed from instruction")
	return true, nil
}

func (p *Processor) confirm(ctx context.Context, signature string) (*solana.Transaction, error) {
	var tx *solana.Transaction
	err := solana.Retry(ctx, confirmAttempts, p.rot, func(ctx context.Context) error {
		var err error
		tx, err = p.rpc.GetTransaction(ctx, signature)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("confirm transaction %s: %w", signature, err)
	}
	return tx, nil
}

func (p *Processor) curveStateAt(ctx context.Context, address string, slot int64) (*domain.BondingCurveState, error) {
	var data []byte
	err := solana.Retry(ctx, confirmAttempts, p.rot, func(ctx context.Context) error {
		info, _, err := p.rpc.GetAccountInfoAndContext(ctx, address, slot)
		if err != nil {
			return err
		}
		if info == nil {
			return fmt.Errorf("account %s not found", address)
		}
		data = info.Data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decoder.ParseBondingCurve(data)
}
