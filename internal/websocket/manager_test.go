package websocket

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Рассылка пользователю не должна конфликтовать с параллельным
// добавлением и удалением его соединений (падение всего процесса
// при одновременной итерации и записи в карту клиентов).
func TestSendToUser_ConcurrentWithClientChurn(t *testing.T) {
	m := NewManager()

	// Постоянные соединения пользователя, получающие рассылку
	persistent := make([]*Client, 0, 8)
	for i := 0; i < 8; i++ {
		c := NewClient(nil, m, "user-1")
		m.AddClient(c)
		persistent = append(persistent, c)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			m.SendToUser("user-1", Event{Type: EventNewMessage})
		}
	}()

	// Текучка соединений того же пользователя во время рассылки
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			c := NewClient(nil, m, "user-1")
			m.AddClient(c)
			m.RemoveClient(c.ID)
		}
	}()

	wg.Wait()

	// Постоянные соединения остались зарегистрированными
	m.userMutex.RLock()
	registered := len(m.userClients["user-1"])
	m.userMutex.RUnlock()
	assert.Equal(t, 8, registered)

	// События дошли до постоянных соединений (доставка асинхронная)
	for _, c := range persistent {
		require.Eventually(t, func() bool {
			return len(c.send) > 0
		}, time.Second, 10*time.Millisecond)
	}
}

func TestRemoveClient_LastConnectionDropsUser(t *testing.T) {
	m := NewManager()

	c := NewClient(nil, m, "user-1")
	m.AddClient(c)
	m.RemoveClient(c.ID)

	m.userMutex.RLock()
	_, exists := m.userClients["user-1"]
	m.userMutex.RUnlock()
	assert.False(t, exists)

	// Рассылка пользователю без соединений не паникует
	m.SendToUser("user-1", Event{Type: EventNewMessage})
}
