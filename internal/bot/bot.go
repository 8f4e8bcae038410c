package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"shop-bot/internal/models"
	"shop-bot/internal/repository"
)

const defaultLanguage = "en"

type Store interface {
	AddUser(ctx context.Context, telegramID int64, fullname, languageCode string, userName *string, referrerID *int64) (*models.User, error)
	GetUserByID(ctx context.Context, telegramID int64) (*models.User, error)
	GetAllProducts(ctx context.Context) ([]models.Product, error)
	GetProductByID(ctx context.Context, productID int64) (*models.Product, error)
	AddProduct(ctx context.Context, title string, description *string, price decimal.Decimal) (*models.Product, error)
	AddOrder(ctx context.Context, userID int64) (*models.Order, error)
	AddProductToOrder(ctx context.Context, orderID, productID int64, quantity int) error
	GetAllUserOrders(ctx context.Context, telegramID int64) ([]repository.UserOrder, error)
	SelectAllInvitedUsers(ctx context.Context) ([]repository.InvitedUser, error)
}

type Bot struct {
	Instance *telego.Bot
	Store    Store
	Admins   map[int64]bool
	Log      zerolog.Logger

	username string
}

func NewBot(token string, store Store, admins map[int64]bool, log zerolog.Logger) (*Bot, error) {
	tgBot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		Instance: tgBot,
		Store:    store,
		Admins:   admins,
		Log:      log.With().Str("component", "bot").Logger(),
	}, nil
}

// Run polls for updates until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	me, err := b.Instance.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot info: %w", err)
	}
	b.username = me.Username

	updates, err := b.Instance.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.Instance, updates)
	if err != nil {
		return fmt.Errorf("failed to create update handler: %w", err)
	}

	handler.Handle(b.command("start", b.start), th.CommandEqual("start"))
	handler.Handle(b.command("profile", b.profile), th.CommandEqual("profile"))
	handler.Handle(b.command("catalog", b.catalog), th.CommandEqual("catalog"))
	handler.Handle(b.command("buy", b.buy), th.CommandEqual("buy"))
	handler.Handle(b.command("orders", b.orders), th.CommandEqual("orders"))
	handler.Handle(b.command("referrals", b.adminOnly(b.referrals)), th.CommandEqual("referrals"))
	handler.Handle(b.command("addproduct", b.adminOnly(b.addProduct)), th.CommandEqual("addproduct"))

	go func() {
		<-ctx.Done()
		_ = handler.Stop()
	}()

	b.Log.Info().Str("username", me.Username).Msg("bot started")
	return handler.Start()
}

// commandFunc handles one command and returns the reply text. rest is the
// message text after the command word.
type commandFunc func(ctx context.Context, log zerolog.Logger, from telego.User, rest string) string

func (b *Bot) command(name string, fn commandFunc) th.Handler {
	return func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if message == nil || message.From == nil {
			return nil
		}

		log := b.Log.With().
			Str("request_id", uuid.NewString()).
			Str("command", name).
			Int64("telegram_id", message.From.ID).
			Logger()

		reply := fn(ctx.Context(), log, *message.From, commandRest(message.Text))

		_, err := ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), reply))
		if err != nil {
			log.Warn().Err(err).Msg("failed to send reply")
		}
		return nil
	}
}

func (b *Bot) adminOnly(fn commandFunc) commandFunc {
	return func(ctx context.Context, log zerolog.Logger, from telego.User, rest string) string {
		if !b.Admins[from.ID] {
			log.Warn().Msg("admin command refused")
			return "⛔ This command is for admins only."
		}
		return fn(ctx, log, from, rest)
	}
}

func commandRest(text string) string {
	_, rest, _ := strings.Cut(strings.TrimSpace(text), " ")
	return strings.TrimSpace(rest)
}

func fullname(u telego.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}

func (b *Bot) start(ctx context.Context, log zerolog.Logger, from telego.User, rest string) string {
	var referrerID *int64
	if id, ok := ParseReferral(rest); ok && id != from.ID {
		referrer, err := b.Store.GetUserByID(ctx, id)
		switch {
		case err != nil:
			log.Error().Err(err).Int64("referrer_id", id).Msg("failed to look up referrer")
		case referrer == nil:
			log.Info().Int64("referrer_id", id).Msg("ignoring unknown referrer")
		default:
			referrerID = &id
		}
	}

	var userName *string
	if from.Username != "" {
		userName = &from.Username
	}
	language := from.LanguageCode
	if language == "" {
		language = defaultLanguage
	}

	user, err := b.Store.AddUser(ctx, from.ID, fullname(from), language, userName, referrerID)
	if err != nil {
		log.Error().Err(err).Msg("failed to register user")
		return StoreErrorMessage(err)
	}
	log.Info().Bool("referred", user.ReferrerID != nil).Msg("user registered")

	return fmt.Sprintf("Hi, %s! 👋\n\n/catalog shows what we sell, /buy places an order, /orders lists your orders and /profile shows your invite link.", user.Fullname)
}

func (b *Bot) profile(ctx context.Context, log zerolog.Logger, from telego.User, _ string) string {
	user, err := b.Store.GetUserByID(ctx, from.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load profile")
		return StoreErrorMessage(err)
	}
	if user == nil {
		return "Send /start first."
	}

	var link string
	if b.username != "" {
		link = ReferralLink(b.username, user.TelegramID)
	}
	return FormatProfile(user, link)
}

func (b *Bot) catalog(ctx context.Context, log zerolog.Logger, _ telego.User, _ string) string {
	products, err := b.Store.GetAllProducts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load catalog")
		return StoreErrorMessage(err)
	}
	return FormatCatalog(products)
}

func (b *Bot) buy(ctx context.Context, log zerolog.Logger, from telego.User, rest string) string {
	productID, quantity, err := ParseBuyArgs(strings.Fields(rest))
	if err != nil {
		return err.Error()
	}

	user, err := b.Store.GetUserByID(ctx, from.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load user")
		return StoreErrorMessage(err)
	}
	if user == nil {
		return "Send /start first."
	}

	product, err := b.Store.GetProductByID(ctx, productID)
	if err != nil {
		log.Error().Err(err).Int64("product_id", productID).Msg("failed to load product")
		return StoreErrorMessage(err)
	}
	if product == nil {
		return fmt.Sprintf("❌ No product with id %d. See /catalog.", productID)
	}

	order, err := b.Store.AddOrder(ctx, user.TelegramID)
	if err != nil {
		log.Error().Err(err).Msg("failed to create order")
		return StoreErrorMessage(err)
	}
	if err := b.Store.AddProductToOrder(ctx, order.OrderID, product.ProductID, quantity); err != nil {
		log.Error().Err(err).Int64("order_id", order.OrderID).Msg("failed to add product to order")
		return StoreErrorMessage(err)
	}

	total := product.Price.Mul(decimal.NewFromInt(int64(quantity)))
	log.Info().Int64("order_id", order.OrderID).Int64("product_id", product.ProductID).Int("quantity", quantity).Msg("order placed")
	return fmt.Sprintf("✅ Order #%d: %s × %d = %s", order.OrderID, product.Title, quantity, total.StringFixed(2))
}

func (b *Bot) orders(ctx context.Context, log zerolog.Logger, from telego.User, _ string) string {
	rows, err := b.Store.GetAllUserOrders(ctx, from.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load orders")
		return StoreErrorMessage(err)
	}
	return FormatOrders(rows)
}

func (b *Bot) referrals(ctx context.Context, log zerolog.Logger, _ telego.User, _ string) string {
	pairs, err := b.Store.SelectAllInvitedUsers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load referrals")
		return StoreErrorMessage(err)
	}
	return FormatReferrals(pairs)
}

func (b *Bot) addProduct(ctx context.Context, log zerolog.Logger, _ telego.User, rest string) string {
	p, err := ParseAddProduct(rest)
	if err != nil {
		return err.Error()
	}

	product, err := b.Store.AddProduct(ctx, p.Title, p.Description, p.Price)
	if err != nil {
		log.Error().Err(err).Msg("failed to add product")
		return StoreErrorMessage(err)
	}
	log.Info().Int64("product_id", product.ProductID).Msg("product added")
	return fmt.Sprintf("✅ Added product #%d %s for %s", product.ProductID, product.Title, product.Price.StringFixed(2))
}
