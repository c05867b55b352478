package store

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/barter-api/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "barter_test.db")
	st, err := NewSQLiteStore(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(st.Close)

	return st
}

func createTestUser(t *testing.T, st *SQLiteStore, username string) *models.User {
	t.Helper()

	user, err := st.CreateUser(context.Background(), username, "hash", "Tester "+username, username+"@example.com")
	require.NoError(t, err)
	return user
}

func createTestItem(t *testing.T, st *SQLiteStore, ownerID uuid.UUID, name string) *models.Item {
	t.Helper()

	item, err := st.CreateItem(context.Background(), ownerID, name, "описание", "")
	require.NoError(t, err)
	return item
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.CreateUser(ctx, "alice", "hash1", "Alice", "alice@example.com")
	require.NoError(t, err)

	_, err = st.CreateUser(ctx, "alice", "hash2", "Alice Two", "alice2@example.com")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestGetUserByUsername_NotFound(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetUserByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchUsers_ExcludesSelf(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, st, "alice")
	createTestUser(t, st, "alicia")
	createTestUser(t, st, "bob")

	users, err := st.SearchUsers(ctx, alice.ID, "ali")
	require.NoError(t, err)

	require.Len(t, users, 1)
	assert.Equal(t, "alicia", users[0].Username)
	// Пароль не должен попадать в результаты поиска
	assert.Empty(t, users[0].PasswordHash)
}

func TestCreateItem_Validation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, st, "alice")

	_, err := st.CreateItem(ctx, alice.ID, "   ", "desc", "")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = st.CreateItem(ctx, alice.ID, strings.Repeat("х", models.ItemNameMaxLen+1), "desc", "")
	assert.ErrorIs(t, err, ErrNameTooLong)

	_, err = st.CreateItem(ctx, alice.ID, "Велосипед", strings.Repeat("о", models.ItemDescriptionMaxLen+1), "")
	assert.ErrorIs(t, err, ErrDescriptionTooLong)

	item, err := st.CreateItem(ctx, alice.ID, "  Велосипед  ", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Велосипед", item.Name)
	assert.Equal(t, models.DefaultItemImageURL, item.ImageURL)
}

func TestListOtherItems_ExcludesOwn(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, st, "alice")
	bob := createTestUser(t, st, "bob")
	createTestItem(t, st, alice.ID, "Книга")
	bobItem := createTestItem(t, st, bob.ID, "Лампа")

	items, err := st.ListOtherItems(ctx, alice.ID)
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, bobItem.ID, items[0].ID)
	require.NotNil(t, items[0].Owner)
	assert.Equal(t, "bob", items[0].Owner.Username)
}

func TestCreateTradeOffer_Preconditions(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, st, "alice")
	bob := createTestUser(t, st, "bob")
	aliceItem := createTestItem(t, st, alice.ID, "Книга")
	bobItem := createTestItem(t, st, bob.ID, "Лампа")

	// Обмен с самим собой
	_, err := st.CreateTradeOffer(ctx, alice.ID, alice.ID, aliceItem.ID, bobItem.ID, "")
	assert.ErrorIs(t, err, ErrSelfTrade)

	// Предлагаемый предмет не принадлежит инициатору
	_, err = st.CreateTradeOffer(ctx, alice.ID, bob.ID, bobItem.ID, aliceItem.ID, "")
	assert.ErrorIs(t, err, ErrNotOwner)

	// Запрашиваемый предмет не принадлежит получателю
	_, err = st.CreateTradeOffer(ctx, alice.ID, bob.ID, aliceItem.ID, uuid.New(), "")
	assert.ErrorIs(t, err, ErrItemUnavailable)

	// Первое корректное предложение проходит, дубликат — нет
	_, err = st.CreateTradeOffer(ctx, alice.ID, bob.ID, aliceItem.ID, bobItem.ID, "меняемся?")
	require.NoError(t, err)

	_, err = st.CreateTradeOffer(ctx, alice.ID, bob.ID, aliceItem.ID, bobItem.ID, "еще раз")
	assert.ErrorIs(t, err, ErrDuplicateOffer)
}

func TestAcceptTradeOffer_SwapsOwnership(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, st, "alice")
	bob := createTestUser(t, st, "bob")
	aliceItem := createTestItem(t, st, alice.ID, "Книга")
	bobItem := createTestItem(t, st, bob.ID, "Лампа")

	offer, err := st.CreateTradeOffer(ctx, alice.ID, bob.ID, aliceItem.ID, bobItem.ID, "")
	require.NoError(t, err)

	accepted, err := st.AcceptTradeOffer(ctx, offer.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusAccepted, accepted.Status)

	// Предметы поменялись владельцами
	item, err := st.GetItem(ctx, aliceItem.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, item.OwnerID)

	item, err = st.GetItem(ctx, bobItem.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, item.OwnerID)

	// Обмен попал в историю обеих сторон
	history, err := st.ListTradeHistory(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, offer.ID, history[0].ID)
}

func TestAcceptTradeOffer_OnlyReceiver(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, st, "alice")
	bob := createTestUser(t, st, "bob")
	aliceItem := createTestItem(t, st, alice.ID, "Книга")
	bobItem := createTestItem(t, st, bob.ID, "Лампа")

	offer, err := st.CreateTradeOffer(ctx, alice.ID, bob.ID, aliceItem.ID, bobItem.ID, "")
	require.NoError(t, err)

	// Инициатор не может принять собственное предложение
	_, err = st.AcceptTradeOffer(ctx, offer.ID, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Предложение осталось в ожидании
	pending, err := st.ListPendingOffers(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, pending.Incoming, 1)
}

func TestAcceptTradeOffer_Twice(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, st, "alice")
	bob := createTestUser(t, st, "bob")
	aliceItem := createTestItem(t, st, alice.ID, "Книга")
	bobItem := createTestItem(t, st, bob.ID, "Лампа")

	offer, err := st.CreateTradeOffer(ctx, alice.ID, bob.ID, aliceItem.ID, bobItem.ID, "")
	require.NoError(t, err)

	_, err = st.AcceptTradeOffer(ctx, offer.ID, bob.ID)
	require.NoError(t, err)

	// Повторное принятие уже обработанного предложения
	_, err = st.AcceptTradeOffer(ctx, offer.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAcceptTradeOffer_StaleAfterOwnerChange(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, st, "alice")
	bob := createTestUser(t, st, "bob")
	carol := createTestUser(t, st, "carol")
	aliceItem := createTestItem(t, st, alice.ID, "Книга")
	bobItem := createTestItem(t, st, bob.ID, "Лампа")
	carolItem := createTestItem(t, st, carol.ID, "Часы")

	// Два предложения претендуют на один и тот же предмет Боба
	offer1, err := st.CreateTradeOffer(ctx, alice.ID, bob.ID, aliceItem.ID, bobItem.ID, "")
	require.NoError(t, err)
	offer2, err := st.CreateTradeOffer(ctx, carol.ID, bob.ID, carolItem.ID, bobItem.ID, "")
	require.NoError(t, err)

	_, err = st.AcceptTradeOffer(ctx, offer1.ID, bob.ID)
	require.NoError(t, err)

	// Предмет сменил владельца — второе предложение устарело
	_, err = st.AcceptTradeOffer(ctx, offer2.ID, bob.ID)
	assert.ErrorIs(t, err, ErrStaleOffer)

	// Владельцы не изменились после неудачного принятия
	item, err := st.GetItem(ctx, carolItem.ID)
	require.NoError(t, err)
	assert.Equal(t, carol.ID, item.OwnerID)

	item, err = st.GetItem(ctx, bobItem.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, item.OwnerID)

	// Устаревшее предложение переведено в canceled, а не осталось висеть
	pending, err := st.ListPendingOffers(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, pending.Incoming)
}

func TestAcceptTradeOffer_Concurrent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, st, "alice")
	bob := createTestUser(t, st, "bob")
	carol := createTestUser(t, st, "carol")
	aliceItem := createTestItem(t, st, alice.ID, "Книга")
	bobItem := createTestItem(t, st, bob.ID, "Лампа")
	carolItem := createTestItem(t, st, carol.ID, "Часы")

	offer1, err := st.CreateTradeOffer(ctx, alice.ID, bob.ID, aliceItem.ID, bobItem.ID, "")
	require.NoError(t, err)
	offer2, err := st.CreateTradeOffer(ctx, carol.ID, bob.ID, carolItem.ID, bobItem.ID, "")
	require.NoError(t, err)

	// Оба принятия конкурируют за один предмет
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, offerID := range []uuid.UUID{offer1.ID, offer2.ID} {
		wg.Add(1)
		go func(i int, offerID uuid.UUID) {
			defer wg.Done()
			_, errs[i] = st.AcceptTradeOffer(ctx, offerID, bob.ID)
		}(i, offerID)
	}
	wg.Wait()

	// Ровно одно принятие проходит, второе видит смену владельца
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrStaleOffer)
		}
	}
	assert.Equal(t, 1, succeeded)

	// Предмет Боба обменян ровно один раз
	item, err := st.GetItem(ctx, bobItem.ID)
	require.NoError(t, err)
	assert.NotEqual(t, bob.ID, item.OwnerID)
}

func TestCreateTradeOffer_ConcurrentDuplicate(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, st, "alice")
	bob := createTestUser(t, st, "bob")
	aliceItem := createTestItem(t, st, alice.ID, "Книга")
	bobItem := createTestItem(t, st, bob.ID, "Лампа")

	// Два одинаковых предложения создаются одновременно
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = st.CreateTradeOffer(ctx, alice.ID, bob.ID, aliceItem.ID, bobItem.ID, "")
		}(i)
	}
	wg.Wait()

	// Проходит ровно одно, второе упирается в дубликат
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrDuplicateOffer)
		}
	}
	assert.Equal(t, 1, succeeded)

	// В ожидании у Боба ровно одно входящее предложение
	pending, err := st.ListPendingOffers(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, pending.Incoming, 1)
}

func TestRejectTradeOffer_ReceiverOnly(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, st, "alice")
	bob := createTestUser(t, st, "bob")
	aliceItem := createTestItem(t, st, alice.ID, "Книга")
	bobItem := createTestItem(t, st, bob.ID, "Лампа")

	offer, err := st.CreateTradeOffer(ctx, alice.ID, bob.ID, aliceItem.ID, bobItem.ID, "")
	require.NoError(t, err)

	// Инициатор не может отклонить собственное предложение
	_, err = st.RejectTradeOffer(ctx, offer.ID, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	rejected, err := st.RejectTradeOffer(ctx, offer.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusRejected, rejected.Status)

	// Владельцы не изменились
	item, err := st.GetItem(ctx, aliceItem.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, item.OwnerID)

	// Статус терминальный: повторное отклонение невозможно
	_, err = st.RejectTradeOffer(ctx, offer.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelTradeOffer_EitherParty(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, st, "alice")
	bob := createTestUser(t, st, "bob")
	aliceItem := createTestItem(t, st, alice.ID, "Книга")
	bobItem := createTestItem(t, st, bob.ID, "Лампа")
	aliceItem2 := createTestItem(t, st, alice.ID, "Мяч")

	// Инициатор отменяет свое предложение
	offer, err := st.CreateTradeOffer(ctx, alice.ID, bob.ID, aliceItem.ID, bobItem.ID, "")
	require.NoError(t, err)

	canceled, err := st.CancelTradeOffer(ctx, offer.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusCanceled, canceled.Status)

	// Получатель тоже может отменить адресованное ему предложение
	offer, err = st.CreateTradeOffer(ctx, alice.ID, bob.ID, aliceItem2.ID, bobItem.ID, "")
	require.NoError(t, err)

	_, err = st.CancelTradeOffer(ctx, offer.ID, bob.ID)
	require.NoError(t, err)

	// Посторонний пользователь — нет
	carol := createTestUser(t, st, "carol")
	offer, err = st.CreateTradeOffer(ctx, alice.ID, bob.ID, aliceItem.ID, bobItem.ID, "")
	require.NoError(t, err)

	_, err = st.CancelTradeOffer(ctx, offer.ID, carol.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPendingOffers_Partition(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, st, "alice")
	bob := createTestUser(t, st, "bob")
	aliceItem := createTestItem(t, st, alice.ID, "Книга")
	bobItem := createTestItem(t, st, bob.ID, "Лампа")

	outgoing, err := st.CreateTradeOffer(ctx, alice.ID, bob.ID, aliceItem.ID, bobItem.ID, "")
	require.NoError(t, err)
	incoming, err := st.CreateTradeOffer(ctx, bob.ID, alice.ID, bobItem.ID, aliceItem.ID, "")
	require.NoError(t, err)

	pending, err := st.ListPendingOffers(ctx, alice.ID)
	require.NoError(t, err)

	require.Len(t, pending.Incoming, 1)
	assert.Equal(t, incoming.ID, pending.Incoming[0].ID)
	require.Len(t, pending.Outgoing, 1)
	assert.Equal(t, outgoing.ID, pending.Outgoing[0].ID)

	// Вложенные данные для отображения карточки предложения
	require.NotNil(t, pending.Incoming[0].OfferedItem)
	assert.Equal(t, "Лампа", pending.Incoming[0].OfferedItem.Name)
	require.NotNil(t, pending.Incoming[0].Requester)
	assert.Equal(t, "bob", pending.Incoming[0].Requester.Username)

	count, err := st.CountPendingIncoming(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreateMessage_Validation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, st, "alice")
	bob := createTestUser(t, st, "bob")

	_, err := st.CreateMessage(ctx, alice.ID, bob.ID, "   \t\n  ")
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = st.CreateMessage(ctx, alice.ID, bob.ID, strings.Repeat("щ", models.MessageMaxLen+1))
	assert.ErrorIs(t, err, ErrContentTooLong)

	_, err = st.CreateMessage(ctx, alice.ID, uuid.New(), "привет")
	assert.ErrorIs(t, err, ErrReceiverNotFound)

	msg, err := st.CreateMessage(ctx, alice.ID, bob.ID, "  привет  ")
	require.NoError(t, err)
	assert.Equal(t, "привет", msg.Content)
	assert.False(t, msg.IsRead)
}

func TestConversation_MarksRead(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, st, "alice")
	bob := createTestUser(t, st, "bob")
	carol := createTestUser(t, st, "carol")

	_, err := st.CreateMessage(ctx, alice.ID, bob.ID, "привет")
	require.NoError(t, err)
	_, err = st.CreateMessage(ctx, alice.ID, bob.ID, "как дела?")
	require.NoError(t, err)
	_, err = st.CreateMessage(ctx, carol.ID, bob.ID, "обменяемся?")
	require.NoError(t, err)

	count, err := st.UnreadCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Открытие переписки помечает прочитанными только сообщения от Алисы
	messages, err := st.Conversation(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "привет", messages[0].Content)
	require.NotNil(t, messages[0].Sender)
	assert.Equal(t, "alice", messages[0].Sender.Username)

	count, err = st.UnreadCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// У отправителя счетчик не меняется
	count, err = st.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestChatPartners(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, st, "alice")
	bob := createTestUser(t, st, "bob")
	carol := createTestUser(t, st, "carol")
	createTestUser(t, st, "dave")

	_, err := st.CreateMessage(ctx, alice.ID, bob.ID, "привет")
	require.NoError(t, err)
	_, err = st.CreateMessage(ctx, carol.ID, alice.ID, "привет")
	require.NoError(t, err)

	partners, err := st.ChatPartners(ctx, alice.ID)
	require.NoError(t, err)

	require.Len(t, partners, 2)
	assert.Equal(t, "bob", partners[0].Username)
	assert.Equal(t, "carol", partners[1].Username)
}
