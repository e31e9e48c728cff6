package app_test

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/mandelsoft/fxengine/pkg/testutils"

	me "github.com/mandelsoft/fxengine/cmds/fxctl/app"
	"github.com/mandelsoft/fxengine/pkg/snapshot"
	"github.com/mandelsoft/fxengine/pkg/utils"
)

func execute(ctx context.Context, fs vfs.FileSystem, args ...string) (string, error) {
	var buf bytes.Buffer
	cmd := me.New(fs)
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return buf.String(), err
}

var _ = Describe("fxctl", func() {
	var fs vfs.FileSystem

	BeforeEach(func() {
		fs = Must(TestFileSystem("testdata", true))
	})

	AfterEach(func() {
		vfs.Cleanup(fs)
	})

	Context("eval", func() {
		ctx := context.Background()

		It("evaluates addresses", func() {
			out := Must(execute(ctx, fs, "eval", "testdata/book.yaml", "[book]S1!B1", "[book]S1!@total", "-o", "json"))
			Expect(out).To(Equal(`{"items":[{"address":"[book]S1!B1","value":{"type":"number","number":42}},{"address":"[book]S1!@total","value":{"type":"number","number":63}}]}` + "\n"))
		})

		It("uses default qualifiers", func() {
			out := Must(execute(ctx, fs, "eval", "testdata/book.yaml", "B1", "-u", "book", "--sheet", "S1"))
			Expect(out).To(Equal("ADDRESS     VALUE\n[book]S1!B1 42\n"))
		})

		It("lists all formulas", func() {
			out := Must(execute(ctx, fs, "eval", "testdata/book.yaml"))
			Expect(out).To(ContainSubstring("[book]S1!B1     42\n"))
			Expect(out).To(ContainSubstring("[book]S1!@total 63\n"))
		})

		It("rejects unqualified addresses", func() {
			_, err := execute(ctx, fs, "eval", "testdata/book.yaml", "B1")
			MustFailWithMessage(err, `sheet required for "B1"`)
		})

		It("saves and shows snapshots", func() {
			Must(execute(ctx, fs, "-S", "/snapshots", "eval", "testdata/book.yaml", "B1", "-u", "book", "--sheet", "S1"))
			Expect(vfs.FileExists(fs, "/snapshots/book.yaml")).To(BeTrue())

			out := Must(execute(ctx, fs, "-S", "/snapshots", "snapshots"))
			Expect(out).To(Equal("book\n"))

			out = Must(execute(ctx, fs, "-S", "/snapshots", "snapshots", "book"))
			Expect(out).To(ContainSubstring("[book]S1!B1     42\n"))

			out = Must(execute(ctx, fs, "-S", "/snapshots", "eval", "testdata/book.yaml", "[book]S1!@total"))
			Expect(out).To(ContainSubstring("[book]S1!@total 63\n"))

			Must(execute(ctx, fs, "-S", "/snapshots", "snapshots", "-d", "book"))
			Expect(vfs.FileExists(fs, "/snapshots/book.yaml")).To(BeFalse())
		})
	})

	Context("serve", func() {
		const port = 18089
		var server string
		var cancel context.CancelFunc
		var done chan error

		BeforeEach(func() {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			done = make(chan error, 1)
			server = fmt.Sprintf("http://localhost:%d", port)
			go func() {
				_, err := execute(ctx, fs, "-S", "/snapshots", "serve", "-p", fmt.Sprint(port), "testdata/book.yaml")
				done <- err
			}()
			Eventually(func() error {
				_, err := execute(context.Background(), fs, "-s", server, "get")
				return err
			}, "5s").Should(Succeed())
		})

		AfterEach(func() {
			cancel()
			Eventually(done, "5s").Should(Receive(BeNil()))
		})

		It("lists documents", func() {
			Expect(execute(context.Background(), fs, "-s", server, "get")).To(Equal("book\n"))
		})

		It("gets and sets values", func() {
			ctx := context.Background()
			Expect(execute(ctx, fs, "-s", server, "get", "book", "[book]S1!B1")).To(Equal("ADDRESS     VALUE\n[book]S1!B1 42\n"))

			Must(execute(ctx, fs, "-s", server, "set", "book", "[book]S1!A1", "5"))
			Eventually(func() string {
				out, _ := execute(ctx, fs, "-s", server, "get", "book", "[book]S1!B1")
				return out
			}, "5s").Should(Equal("ADDRESS     VALUE\n[book]S1!B1 10\n"))

			Must(execute(ctx, fs, "-s", server, "set", "book", "[book]S1!@double", "=B1*2"))
			Eventually(func() string {
				out, _ := execute(ctx, fs, "-s", server, "get", "book", "[book]S1!@double")
				return out
			}, "5s").Should(ContainSubstring("[book]S1!@double 20\n"))
		})

		It("saves snapshots on shutdown", func() {
			cancel()
			Eventually(done, "5s").Should(Receive(BeNil()))
			done <- nil

			store := Must(snapshot.NewStore("/snapshots", fs))
			Expect(store.List()).To(Equal([]string{"book"}))
		})
	})

	Context("config", func() {
		It("merges config files", func() {
			mfs := memoryfs.New()
			MustBeSuccessful(vfs.WriteFile(mfs, "/a", []byte("server: http://a:1\nworkers: 3\n"), os.ModePerm))
			MustBeSuccessful(vfs.WriteFile(mfs, "/b", []byte("server: http://b:2\nlogLevel: debug\n"), os.ModePerm))

			var cfg me.Config
			me.MergeConfig(&cfg, me.ReadConfig(mfs, "/a"))
			me.MergeConfig(&cfg, me.ReadConfig(mfs, "/b"))
			me.MergeConfig(&cfg, me.ReadConfig(mfs, "/missing"))
			Expect(cfg).To(Equal(me.Config{
				Server:   utils.Pointer("http://b:2"),
				Workers:  utils.Pointer(3),
				LogLevel: utils.Pointer("debug"),
			}))
		})

		It("overrides by environment", func() {
			os.Setenv(me.ENV_SERVER, "http://env:3")
			defer os.Unsetenv(me.ENV_SERVER)
			cfg := me.GetConfig(memoryfs.New())
			Expect(*cfg.Server).To(Equal("http://env:3"))
		})

		It("derives document names", func() {
			Expect(me.DocumentName("dir/book.yaml")).To(Equal("book"))
		})
	})
})
