// Package autosave form taslaklarını kullanıcı yazmayı bıraktığında arka planda
// kaydeden, kesin gönderim başladığında ise taslak trafiğini kalıcı olarak durduran
// istemci tarafı motorudur.
//
// Akış:
//
//	SetField -> FieldStore (yeni Snapshot) -> IdleScheduler.Touch
//	sessizlik süresi dolar -> Persister.Save(DraftRecord)   (Guard Editing ise)
//	Submit -> Guard.BeginSubmit (senkron, zamanlayıcıyı iptal eder) -> upload -> submit -> Settle
//	Close / sayfa bırakılıyor -> UnloadFlush.Fire (Guard Editing ve taslak boş değilse)
//
// Tüm bileşenler gönderim durumunu tek bir Guard üzerinden okur; ayrı ayrı tutulan
// bayraklar yoktur.
package autosave
