package auth

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

var _ = ginkgo.Describe("RevocationStore", func() {
	ctx := context.Background()

	ginkgo.Context("in memory", func() {
		ginkgo.It("forgets entries once the token would have expired", func() {
			store := NewMemoryRevocationStore()
			now := time.Now()
			store.now = func() time.Time { return now }

			gomega.Expect(store.Revoke(ctx, "jti-1", now.Add(time.Minute))).To(gomega.Succeed())
			gomega.Expect(store.IsRevoked(ctx, "jti-1")).To(gomega.BeTrue())
			gomega.Expect(store.IsRevoked(ctx, "jti-2")).To(gomega.BeFalse())

			store.now = func() time.Time { return now.Add(2 * time.Minute) }
			gomega.Expect(store.IsRevoked(ctx, "jti-1")).To(gomega.BeFalse())
		})
	})

	ginkgo.Context("in redis", func() {
		var (
			mr    *miniredis.Miniredis
			store *RedisRevocationStore
		)

		ginkgo.BeforeEach(func() {
			mr = miniredis.RunT(ginkgo.GinkgoT())
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			ginkgo.DeferCleanup(client.Close)
			store = NewRedisRevocationStore(client, "test:")
		})

		ginkgo.It("stores the jti with a ttl", func() {
			gomega.Expect(store.Revoke(ctx, "jti-1", time.Now().Add(time.Hour))).To(gomega.Succeed())

			gomega.Expect(mr.Exists("test:revoked:jti-1")).To(gomega.BeTrue())
			gomega.Expect(mr.TTL("test:revoked:jti-1")).To(gomega.BeNumerically(">", 59*time.Minute))
			gomega.Expect(store.IsRevoked(ctx, "jti-1")).To(gomega.BeTrue())
		})

		ginkgo.It("expires with the token", func() {
			gomega.Expect(store.Revoke(ctx, "jti-1", time.Now().Add(time.Minute))).To(gomega.Succeed())
			mr.FastForward(2 * time.Minute)
			gomega.Expect(store.IsRevoked(ctx, "jti-1")).To(gomega.BeFalse())
		})

		ginkgo.It("skips tokens that already expired", func() {
			gomega.Expect(store.Revoke(ctx, "old", time.Now().Add(-time.Minute))).To(gomega.Succeed())
			gomega.Expect(mr.Exists("test:revoked:old")).To(gomega.BeFalse())
		})
	})
})
