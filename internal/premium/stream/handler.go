package stream

import (
	"time"

	"premiumflow/internal/premium/filter"
	"premiumflow/internal/premium/memorystore"
	"premiumflow/pkg/alpaca"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler admits decoded trades into the store and hands them to the sinks.
type Handler struct {
	threshold  *filter.Threshold
	store      *memorystore.TradeStore
	dispatcher *Dispatcher
	loc        *time.Location
	logger     *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewHandler wires the admission path. dispatcher may be nil.
func NewHandler(logger *zap.Logger, threshold *filter.Threshold, store *memorystore.TradeStore,
	dispatcher *Dispatcher, loc *time.Location) *Handler {
	return &Handler{
		threshold:  threshold,
		store:      store,
		dispatcher: dispatcher,
		loc:        loc,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// HandleTrade applies the premium threshold to msg. Admitted trades are
// stored and returned with ok set.
func (h *Handler) HandleTrade(msg alpaca.Message) (memorystore.Trade, bool) {
	premium := alpaca.Premium(msg.Price, msg.Size)
	if !h.threshold.Admit(premium) {
		return memorystore.Trade{}, false
	}

	trade := ToTrade(msg, h.loc, h.now())
	trade.ID = h.newID()

	h.store.Insert(trade)
	if h.dispatcher != nil {
		h.dispatcher.Enqueue(trade)
	}

	h.logger.Debug("premium trade detected",
		zap.String("symbol", trade.Symbol),
		zap.Float64("premium", trade.Premium),
	)
	return trade, true
}

// MakeMessageHandler returns a function that decodes raw stream frames and
// routes trade messages through h.
func MakeMessageHandler(logger *zap.Logger, h *Handler) func(frame []byte) {
	return func(frame []byte) {
		msgs, err := alpaca.DecodeFrame(frame)
		if err != nil {
			logger.Warn("failed to decode frame", zap.Error(err), zap.Int("bytes", len(frame)))
			return
		}

		for _, m := range msgs {
			switch m.Type {
			case alpaca.TypeTrade:
				h.HandleTrade(m)
			case alpaca.TypeSubscription:
				logger.Info("subscription confirmed", zap.Strings("trades", m.Trades))
			case alpaca.TypeError:
				logger.Warn("stream error message", zap.Int("code", m.Code), zap.String("msg", m.Msg))
			default:
				// quotes and control messages are not used
			}
		}
	}
}
